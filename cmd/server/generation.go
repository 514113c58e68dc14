package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/modules/recipes"
	"github.com/platemind/entitlements/pkg/logger"
)

type generationConfig struct {
	ServiceURL     string        `env:"GENERATION_SERVICE_URL,required"`
	RequestTimeout time.Duration `env:"GENERATION_REQUEST_TIMEOUT" envDefault:"30s"`
}

var errGenerationUnavailable = errors.New("generation service unavailable")

// generationClient calls the external recipe-generation service over HTTP.
// It only runs after the access gate has passed, so it carries no
// entitlement logic of its own.
type generationClient struct {
	cfg  generationConfig
	http *http.Client
	log  *slog.Logger
}

func newGenerationClient(cfg generationConfig, log *slog.Logger) *generationClient {
	return &generationClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
		log:  log,
	}
}

func (c *generationClient) Generate(ctx context.Context, userID uuid.UUID, prompt string) (*recipes.Recipe, error) {
	body, err := json.Marshal(map[string]string{
		"user_id": userID.String(),
		"prompt":  prompt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "generation request failed", logger.UserID(userID), logger.Error(err))
		return nil, errors.Join(errGenerationUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errGenerationUnavailable, resp.StatusCode)
	}

	var recipe recipes.Recipe
	if err := json.NewDecoder(resp.Body).Decode(&recipe); err != nil {
		return nil, errors.Join(errGenerationUnavailable, err)
	}
	recipe.UserID = userID
	return &recipe, nil
}
