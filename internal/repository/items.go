package repository

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dream-agent/internal/domain"
)

func sessionItem(s domain.Session) map[string]types.AttributeValue {
	followups := make([]types.AttributeValue, 0, len(s.Followups))
	for _, f := range s.Followups {
		followups = append(followups, followupItem(f))
	}
	item := map[string]types.AttributeValue{
		"PK":                     &types.AttributeValueMemberS{Value: sessionPK(s.ID)},
		"SK":                     &types.AttributeValueMemberS{Value: skMeta},
		"id":                     &types.AttributeValueMemberS{Value: s.ID},
		"created_at":             &types.AttributeValueMemberS{Value: s.CreatedAt.UTC().Format(time.RFC3339)},
		"source_path":            &types.AttributeValueMemberS{Value: s.SourcePath},
		"emotional_context":      &types.AttributeValueMemberS{Value: s.EmotionalContext},
		"dream_text":             &types.AttributeValueMemberS{Value: s.DreamText},
		"interpretation":         &types.AttributeValueMemberS{Value: s.Interpretation},
		"interpretation_summary": &types.AttributeValueMemberS{Value: s.InterpretationSummary},
		"followups":              &types.AttributeValueMemberL{Value: followups},
	}
	// Optional attributes are omitted rather than stored empty; user_id in
	// particular must be absent for the owner index to stay sparse.
	putOptional(item, "user_id", s.UserID)
	putOptional(item, "output_path", s.OutputPath)
	putOptional(item, "title", s.Title)
	putOptional(item, "image_url", s.ImageURL)
	if s.ImageGeneratedAt != nil {
		item["image_generated_at"] = &types.AttributeValueMemberS{Value: s.ImageGeneratedAt.UTC().Format(time.RFC3339)}
	}
	return item
}

func followupItem(f domain.Followup) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"at":       &types.AttributeValueMemberS{Value: f.At.UTC().Format(time.RFC3339)},
		"question": &types.AttributeValueMemberS{Value: f.Question},
		"answer":   &types.AttributeValueMemberS{Value: f.Answer},
	}}
}

func putOptional(item map[string]types.AttributeValue, key, value string) {
	if value != "" {
		item[key] = &types.AttributeValueMemberS{Value: value}
	}
}

// itemToSession converts a DynamoDB attribute map to a Session.
func itemToSession(item map[string]types.AttributeValue) (domain.Session, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Session{}, err
	}
	createdAt, err := timeAttr(item, "created_at")
	if err != nil {
		return domain.Session{}, err
	}
	interpretation, err := strAttr(item, "interpretation")
	if err != nil {
		return domain.Session{}, err
	}
	followups, err := followupsAttr(item, "followups")
	if err != nil {
		return domain.Session{}, err
	}

	s := domain.Session{
		ID:                    id,
		UserID:                optStrAttr(item, "user_id"),
		CreatedAt:             createdAt,
		SourcePath:            optStrAttr(item, "source_path"),
		OutputPath:            optStrAttr(item, "output_path"),
		EmotionalContext:      optStrAttr(item, "emotional_context"),
		DreamText:             optStrAttr(item, "dream_text"),
		Interpretation:        interpretation,
		InterpretationSummary: optStrAttr(item, "interpretation_summary"),
		Title:                 optStrAttr(item, "title"),
		ImageURL:              optStrAttr(item, "image_url"),
		Followups:             followups,
	}
	if _, ok := item["image_generated_at"]; ok {
		at, err := timeAttr(item, "image_generated_at")
		if err != nil {
			return domain.Session{}, err
		}
		s.ImageGeneratedAt = &at
	}
	return s, nil
}

func followupsAttr(item map[string]types.AttributeValue, key string) ([]domain.Followup, error) {
	out := []domain.Followup{}
	v, ok := item[key]
	if !ok {
		return out, nil
	}
	list, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	for i, raw := range list.Value {
		m, ok := raw.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("repository: %s[%d] is not a map", key, i)
		}
		at, err := timeAttr(m.Value, "at")
		if err != nil {
			return nil, fmt.Errorf("repository: %s[%d]: %w", key, i, err)
		}
		out = append(out, domain.Followup{
			At:       at,
			Question: optStrAttr(m.Value, "question"),
			Answer:   optStrAttr(m.Value, "answer"),
		})
	}
	return out, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func optStrAttr(item map[string]types.AttributeValue, key string) string {
	s, _ := strAttr(item, key)
	return s
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	raw, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts.UTC(), nil
}
