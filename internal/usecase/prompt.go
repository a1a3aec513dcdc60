package usecase

import (
	"fmt"
	"strings"

	"dream-agent/internal/domain"
)

const (
	noHistory        = "(sin historial)"
	titleInputMaxLen = 500

	interpretationTemperature = 0.8
	followupTemperature       = 0.5
	titleTemperature          = 0.7
)

func buildInterpretationMessages(dreamText, emotionalContext, memory string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: interpretationPolicy()},
		{Role: domain.RoleUser, Content: strings.Join([]string{
			"---",
			"SUEÑO DESCRITO:",
			dreamText,
			"",
			"CONTEXTO EMOCIONAL:",
			emotionalContext,
			"",
			"SUEÑOS PREVIOS DEL USUARIO (JSON):",
			memory,
			"",
			"---",
			"Tu respuesta debe incluir:",
			"1. Un resumen simbólico del sueño (en tono narrativo breve).",
			"2. Un análisis psicológico de los principales símbolos, emociones o acciones.",
			"3. Una interpretación general: ¿qué podría estar expresando el inconsciente?",
			"4. Un consejo o reflexión integradora, invitando al autoconocimiento.",
			"Puedes mencionar brevemente coincidencias o patrones con sueños previos solo cuando aporten claridad (máximo 2–3 oraciones sobre esto).",
			"---",
		}, "\n")},
	}
}

func interpretationPolicy() string {
	return strings.Join([]string{
		"Eres un analista onírico con conocimientos en psicología simbólica, arquetipos jungianos,",
		"análisis de sueños freudiano y narrativa terapéutica contemporánea. Tu tarea es interpretar el sueño que",
		"te proporciona el usuario, identificando símbolos, emociones, arquetipos y posibles mensajes del inconsciente.",
		"",
		"Analiza con empatía y profundidad, evitando respuestas genéricas. Usa un lenguaje accesible, reflexivo y poético,",
		"pero con base psicológica. No hables de predicciones o supersticiones, sino de interpretaciones emocionales y simbólicas.",
		"",
		"Dispones de un contexto en formato JSON con resúmenes de sueños previos del usuario (ver sección \"SUEÑOS PREVIOS DEL USUARIO (JSON)\").",
		"Úsalo para detectar patrones y símbolos recurrentes y para relacionar el sueño actual con los anteriores.",
		"Si no hay relación sólida, indícalo explícitamente y no inventes detalles.",
	}, "\n")
}

func buildFollowupMessages(s domain.Session, question, history string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: strings.Join([]string{
			"Eres un analista onírico. Responde de forma breve (máximo 3–5 frases) y concreta a la pregunta",
			"de seguimiento del usuario. Basa tu respuesta en el sueño, el contexto emocional y la interpretación previa.",
			"No inventes detalles no soportados; si algo no está claro en el material, dilo explícitamente y sugiere cómo",
			"explorarlo.",
		}, "\n")},
		{Role: domain.RoleUser, Content: strings.Join([]string{
			"---",
			"SUEÑO:",
			s.DreamText,
			"",
			"CONTEXTO EMOCIONAL:",
			s.EmotionalContext,
			"",
			"INTERPRETACIÓN PREVIA:",
			s.Interpretation,
			"",
			"HISTORIAL RECIENTE DE FOLLOW-UPS (Q/A):",
			history,
			"",
			"PREGUNTA DE SEGUIMIENTO:",
			question,
			"---",
			"Respuesta breve y directa:",
		}, "\n")},
	}
}

// followupHistory renders the last n exchanges as Q/A pairs, oldest first.
func followupHistory(followups []domain.Followup, n int) string {
	if n > 0 && len(followups) > n {
		followups = followups[len(followups)-n:]
	}
	if n <= 0 || len(followups) == 0 {
		return noHistory
	}
	parts := make([]string, 0, len(followups))
	for _, f := range followups {
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", f.Question, f.Answer))
	}
	return strings.Join(parts, "\n")
}

func buildTitleMessages(description string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: fmt.Sprintf(
			"Genera un título muy breve y descriptivo (máximo 6 palabras) para este sueño.\n"+
				"Solo devuelve el título, sin explicaciones adicionales.\n\nSueño: %s\n\nTítulo:",
			firstRunes(description, titleInputMaxLen),
		)},
	}
}
