// Package paramstore reads the service's API tokens and signing secret from
// AWS SSM Parameter Store. Every parameter holds a SecureString of the form
// {"token": "..."}.
package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the slice of *ssm.Client the token reader needs.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// TokenReader returns the decoded token stored under a parameter name.
type TokenReader interface {
	Token(ctx context.Context, name string) (string, error)
}

// Client reads token parameters through SSM.
type Client struct {
	ssm ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: ssm api must not be nil")
	}
	return &Client{ssm: api}, nil
}

// Token fetches name with decryption and unwraps its {"token"} payload.
func (c *Client) Token(ctx context.Context, name string) (string, error) {
	if c.ssm == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: token name is required")
	}

	out, err := c.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: ptr(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: token %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: token %q: parameter has no value", name)
	}
	token, err := decodeToken(*out.Parameter.Value)
	if err != nil {
		return "", fmt.Errorf("paramstore: token %q: %w", name, err)
	}
	return token, nil
}

func decodeToken(raw string) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("value is not a {\"token\"} document: %w", err)
	}
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}

func ptr[T any](v T) *T { return &v }
