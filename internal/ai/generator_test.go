package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	reply string
	err   error
	user  string
}

func (s *stubCompleter) Complete(_ context.Context, _, user string) (string, error) {
	s.user = user
	return s.reply, s.err
}

func TestDescription(t *testing.T) {
	c := &stubCompleter{reply: "  A night of jazz.  "}
	g := NewGenerator(c, logger.NewNop())

	res, err := g.Description(context.Background(), models.GenerateRequest{Title: "Jazz Night", Location: "Blue Room"})
	require.NoError(t, err)
	assert.Equal(t, "A night of jazz.", res.Description)
	assert.Contains(t, c.user, "Jazz Night")
	assert.Contains(t, c.user, "Blue Room")
}

func TestAgendaParsesFencedJSON(t *testing.T) {
	g := NewGenerator(&stubCompleter{reply: "```json\n[{\"time\":\"18:00\",\"title\":\"Doors\",\"description\":\"\"}]\n```"}, logger.NewNop())

	res, err := g.Agenda(context.Background(), models.GenerateRequest{Title: "Gala"})
	require.NoError(t, err)
	require.Len(t, res.Agenda, 1)
	assert.Equal(t, "Doors", res.Agenda[0].Title)
}

func TestUnparseableRepliesFallBackToEmpty(t *testing.T) {
	g := NewGenerator(&stubCompleter{reply: "Sure! Here are some ideas..."}, logger.NewNop())
	ctx := context.Background()

	agenda, err := g.Agenda(ctx, models.GenerateRequest{Title: "Gala"})
	require.NoError(t, err)
	assert.NotNil(t, agenda.Agenda)
	assert.Empty(t, agenda.Agenda)

	tags, err := g.Tags(ctx, models.GenerateRequest{Title: "Gala"})
	require.NoError(t, err)
	assert.NotNil(t, tags.Tags)
	assert.Empty(t, tags.Tags)

	raw, err := json.Marshal(tags)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, string(raw))
}

func TestTagsAreNormalized(t *testing.T) {
	g := NewGenerator(&stubCompleter{reply: `["Music", " music", "Live ", ""]`}, logger.NewNop())
	res, err := g.Tags(context.Background(), models.GenerateRequest{Title: "Gig"})
	require.NoError(t, err)
	assert.Equal(t, []string{"music", "live"}, res.Tags)
}

func TestGenerateDispatch(t *testing.T) {
	g := NewGenerator(&stubCompleter{reply: "[]"}, logger.NewNop())

	out, err := g.Generate(context.Background(), KindTags, models.GenerateRequest{})
	require.NoError(t, err)
	assert.IsType(t, models.TagsResponse{}, out)

	_, err = g.Generate(context.Background(), "poem", models.GenerateRequest{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCompleterErrorsPropagate(t *testing.T) {
	g := NewGenerator(&stubCompleter{err: errors.New("rate limited")}, logger.NewNop())
	_, err := g.Description(context.Background(), models.GenerateRequest{Title: "Gala"})
	assert.Error(t, err)

	disabled := NewGenerator(nil, logger.NewNop())
	_, err = disabled.Tags(context.Background(), models.GenerateRequest{Title: "Gala"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Len(t, body.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[\"jazz\"]"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter(config.AIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := NewGenerator(c, logger.NewNop()).Tags(context.Background(), models.GenerateRequest{Title: "Jazz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, res.Tags)

	_, err = NewOpenAICompleter(config.AIConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
