package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"nutrirag/internal/domain"
)

type fakeModel struct {
	got  []llms.MessageContent
	resp *llms.ContentResponse
	err  error
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.got = messages
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestGenerateBuildsMultimodalMessage(t *testing.T) {
	m := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "NAME: Apple"}}}}
	g := Wrap(m, 0)

	out, err := g.Generate(context.Background(),
		domain.ImagePart("image/png", []byte{0x89, 'P', 'N', 'G'}),
		domain.TextPart("Analyze this food"),
	)
	require.NoError(t, err)
	assert.Equal(t, "NAME: Apple", out)

	require.Len(t, m.got, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.got[0].Role)
	require.Len(t, m.got[0].Parts, 2)
	bin, ok := m.got[0].Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", bin.MIMEType)
	txt, ok := m.got[0].Parts[1].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Analyze this food", txt.Text)
}

func TestGenerateWrapsUpstreamErrors(t *testing.T) {
	g := Wrap(&fakeModel{err: errors.New("503")}, 0)
	_, err := g.Generate(context.Background(), domain.TextPart("q"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	g = Wrap(&fakeModel{resp: &llms.ContentResponse{}}, 0)
	_, err = g.Generate(context.Background(), domain.TextPart("q"))
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	_, err := Wrap(&fakeModel{}, 0).Generate(context.Background())
	assert.Error(t, err)
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("NUTRIRAG_GEMINI_GEN_TEST", "")
	_, err := New(context.Background(), Config{APIKeyEnv: "NUTRIRAG_GEMINI_GEN_TEST"})
	assert.True(t, errors.Is(err, domain.ErrMissingCredential))
}
