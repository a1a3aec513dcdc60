package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize_UsesGeneralInterpretationBlock(t *testing.T) {
	summary := Summarize(OfflineInterpretation("lloraba en un bosque", ""))

	require.Equal(t, "- Este relato sugiere elaboración de experiencias recientes y necesidades de integración emocional. Se percibe nostalgia o duelo.", summary)
}

func TestSummarize_CaseInsensitiveHeaders(t *testing.T) {
	text := "INTERPRETACIÓN GENERAL\nEl agua habla de emociones.\n\nCONSEJO INTEGRADOR\nEscribe."

	require.Equal(t, "El agua habla de emociones.", Summarize(text))
}

func TestSummarize_FallsBackToSymbolicSummary(t *testing.T) {
	text := "Intro\n\nResumen simbólico: el mar.\n\nAnálisis psicológico: olas."

	require.Equal(t, "Resumen simbólico: el mar.", Summarize(text))
}

func TestSummarize_FallsBackToFirstParagraph(t *testing.T) {
	require.Equal(t, "Primer párrafo.", Summarize("Primer párrafo.\n\nSegundo."))
	require.Equal(t, "(sin contenido)", Summarize("  "))
}

func TestSummarize_TruncatesLongSummary(t *testing.T) {
	text := strings.Repeat("palabra ", 100)

	summary := Summarize(text)

	require.True(t, strings.HasSuffix(summary, "…"))
	require.LessOrEqual(t, len([]rune(summary)), 240)
}

func TestSummarize_EmptyGeneralBlockFallsBack(t *testing.T) {
	text := "Resumen simbólico: luz.\n\nInterpretación general\n---"

	require.Equal(t, "Resumen simbólico: luz.", Summarize(text))
}
