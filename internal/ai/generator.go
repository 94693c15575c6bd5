package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/models"
)

const (
	KindDescription = "description"
	KindAgenda      = "agenda"
	KindTags        = "tags"
)

var ErrUnknownKind = errors.New("unknown generation kind")

const systemPrompt = "You help organizers write listings for small events. Answer with the requested content only."

// Generator drafts event content. Replies that cannot be parsed degrade to empty values.
type Generator struct {
	completer Completer
	log       *logger.Logger
}

func NewGenerator(completer Completer, log *logger.Logger) *Generator {
	return &Generator{completer: completer, log: log}
}

// Generate dispatches on kind and returns the matching response body
func (g *Generator) Generate(ctx context.Context, kind string, req models.GenerateRequest) (interface{}, error) {
	switch kind {
	case KindDescription:
		return g.Description(ctx, req)
	case KindAgenda:
		return g.Agenda(ctx, req)
	case KindTags:
		return g.Tags(ctx, req)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func (g *Generator) Description(ctx context.Context, req models.GenerateRequest) (models.DescriptionResponse, error) {
	prompt := fmt.Sprintf("Write a two paragraph description for this event.\n%s", describe(req))
	reply, err := g.complete(ctx, KindDescription, prompt)
	if err != nil {
		return models.DescriptionResponse{}, err
	}
	return models.DescriptionResponse{Description: strings.TrimSpace(reply)}, nil
}

func (g *Generator) Agenda(ctx context.Context, req models.GenerateRequest) (models.AgendaResponse, error) {
	prompt := fmt.Sprintf("Propose an agenda for this event as a JSON array of objects with the keys time, title and description.\n%s", describe(req))
	reply, err := g.complete(ctx, KindAgenda, prompt)
	if err != nil {
		return models.AgendaResponse{}, err
	}

	agenda := []models.AgendaItem{}
	if err := json.Unmarshal([]byte(stripFences(reply)), &agenda); err != nil {
		g.log.Warn("AI", fmt.Sprintf("Discarding unparseable agenda reply: %v", err))
		metrics.AIRequests.WithLabelValues(KindAgenda, "unparseable").Inc()
		agenda = []models.AgendaItem{}
	}
	return models.AgendaResponse{Agenda: agenda}, nil
}

func (g *Generator) Tags(ctx context.Context, req models.GenerateRequest) (models.TagsResponse, error) {
	prompt := fmt.Sprintf("Suggest up to eight short tags for this event as a JSON array of strings.\n%s", describe(req))
	reply, err := g.complete(ctx, KindTags, prompt)
	if err != nil {
		return models.TagsResponse{}, err
	}

	var raw []string
	if err := json.Unmarshal([]byte(stripFences(reply)), &raw); err != nil {
		g.log.Warn("AI", fmt.Sprintf("Discarding unparseable tags reply: %v", err))
		metrics.AIRequests.WithLabelValues(KindTags, "unparseable").Inc()
		return models.TagsResponse{Tags: []string{}}, nil
	}
	tags := make([]string, 0, len(raw))
	seen := map[string]bool{}
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return models.TagsResponse{Tags: tags}, nil
}

func (g *Generator) complete(ctx context.Context, kind, prompt string) (string, error) {
	if g.completer == nil {
		metrics.AIRequests.WithLabelValues(kind, "disabled").Inc()
		return "", ErrNotConfigured
	}
	reply, err := g.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		metrics.AIRequests.WithLabelValues(kind, "error").Inc()
		g.log.Error("AI", fmt.Sprintf("%s generation failed: %v", kind, err))
		return "", err
	}
	metrics.AIRequests.WithLabelValues(kind, "success").Inc()
	return reply, nil
}

func describe(req models.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if req.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", req.Date)
	}
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.Location)
	}
	if req.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", req.Description)
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(req.Tags, ", "))
	}
	return b.String()
}

// stripFences removes a surrounding ``` or ```json block
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
