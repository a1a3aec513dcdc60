package usecase

import (
	"strings"
)

const (
	offlineExcerptLen  = 120
	offlinePlaceholder = "(sin descripción)"
)

// OfflineInterpretation builds the deterministic, network-free interpretation
// used when the model is disabled, slow or failing. Equal inputs always give
// byte-identical output.
func OfflineInterpretation(dreamText, emotionalContext string) string {
	dreamText = strings.TrimSpace(dreamText)
	emotionalContext = strings.TrimSpace(emotionalContext)
	lower := strings.ToLower(dreamText)

	excerpt := offlinePlaceholder
	if dreamText != "" {
		excerpt = firstRunes(firstLine(dreamText), offlineExcerptLen)
	}

	theme := "procesos internos"
	if strings.Contains(lower, "bosque") {
		theme = "una búsqueda interna y cambio"
	}
	grief := ""
	if strings.Contains(lower, "llor") {
		grief = "Se percibe nostalgia o duelo."
	}

	var b strings.Builder
	b.WriteString("Resumen simbólico:\n")
	b.WriteString("- El sueño podría aludir a " + theme + ".\n\n")
	b.WriteString("Análisis psicológico:\n")
	b.WriteString("- Observa los elementos centrales (lugares, objetos, acciones) y las emociones que despiertan.\n")
	b.WriteString("- Atiende tensiones entre deseo y miedo, y señales de transición vital.\n\n")
	b.WriteString("Interpretación general:\n")
	b.WriteString("- Este relato sugiere elaboración de experiencias recientes y necesidades de integración emocional. " + grief + "\n\n")
	b.WriteString("Consejo integrador:\n")
	b.WriteString("- Escribe el sueño completo, identifica 3 símbolos y compón una frase puente entre lo soñado y tu vida actual.\n\n")
	b.WriteString("Fragmento del sueño: " + excerpt + "\n")
	if emotionalContext != "" {
		b.WriteString("Contexto emocional: " + emotionalContext + "\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
