package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/approval"
	"github.com/poiesic/docent/conversation"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	index         *badger.MemoryIndex
	registry      *approval.Registry
	generator     *mock.MockGenerator
	speech        *mock.MockSpeech
	conversations *conversation.Store
	pipeline      *Pipeline
}

func setupTestPipeline(t *testing.T, speech *mock.MockSpeech, opts ...Option) *fixture {
	t.Helper()
	index, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	registry := approval.NewRegistry()
	retriever, err := search.NewRetriever(index.Fragments, index.Manifest, embedder, registry)
	require.NoError(t, err)

	generator := mock.NewMockGenerator()
	provider := mock.NewMockProviderWithServices(embedder, generator, speech)
	conversations := conversation.NewStore(0)

	pipeline, err := NewPipeline(provider, retriever, conversations, opts...)
	require.NoError(t, err)

	return &fixture{
		index:         index,
		registry:      registry,
		generator:     generator,
		speech:        speech,
		conversations: conversations,
		pipeline:      pipeline,
	}
}

// seed stores one fragment per source, closest to the query first, and
// initializes the index.
func (f *fixture) seed(t *testing.T, sources ...string) {
	t.Helper()
	ctx := context.Background()
	for i, source := range sources {
		fragment := core.NewFragment(source, 0, "Policy text from "+source+". "+strings.Repeat("Detail. ", 30), nil)
		fragment.Vector = core.NormalizeVector([]float32{float32(len(sources) - i), float32(i)})
		_, err := f.index.Fragments.AddFragments(ctx, fragment)
		require.NoError(t, err)
		f.registry.Register(source)
	}
	require.NoError(t, f.index.Manifest.SaveManifest(ctx, &core.IndexManifest{
		EmbeddingModel: "test",
		Dimensions:     2,
		CreatedAt:      time.Now().UTC(),
	}))
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestNewPipeline(t *testing.T) {
	index, err := badger.NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()
	provider := mock.NewMockProvider()
	retriever, err := search.NewRetriever(index.Fragments, index.Manifest, provider.Embedder(), approval.NewRegistry())
	require.NoError(t, err)
	store := conversation.NewStore(0)

	tests := []struct {
		name      string
		provider  ai.AIProvider
		retriever Retriever
		store     *conversation.Store
		opts      []Option
		wantErr   error
	}{
		{"valid", provider, retriever, store, nil, nil},
		{"nil provider", nil, retriever, store, nil, ErrProviderRequired},
		{"nil retriever", provider, nil, store, nil, ErrRetrieverRequired},
		{"nil conversations", provider, retriever, nil, nil, ErrConversationRequired},
		{"invalid k", provider, retriever, store, []Option{WithDefaultK(0)}, search.ErrInvalidK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(tt.provider, tt.retriever, tt.store, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p.Engines())
			assert.Same(t, store, p.Conversations())
		})
	}
}

func TestAnswer_NoIndex(t *testing.T) {
	f := setupTestPipeline(t, nil)

	resp, err := f.pipeline.Answer(context.Background(), Request{Session: "s1", Question: "When is registration?"})
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "When is registration?")
	assert.Contains(t, resp.Answer, "no documents have been uploaded")
	assert.Equal(t, DefaultDepartment, resp.Department)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, resp.Elapsed)
	assert.Zero(t, f.generator.CallCount())
	assert.Empty(t, f.conversations.Turns("s1"))
}

func TestAnswer_Grounded(t *testing.T) {
	f := setupTestPipeline(t, nil, WithInstitution("Riverside College"))
	f.seed(t, "policy.pdf", "handbook.pdf")

	resp, err := f.pipeline.Answer(context.Background(), Request{
		Session:    "s1",
		Question:   "What is the attendance policy?",
		Department: "Registrar",
	})
	require.NoError(t, err)

	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "policy.pdf", resp.Sources[0].Fragment.Source)
	assert.Equal(t, "Registrar", resp.Department)
	assert.False(t, resp.Degraded)
	assert.True(t, strings.HasPrefix(resp.Answer, "answer: "))

	messages := f.generator.LastMessages()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Content, "Riverside College")
	assert.Contains(t, messages[0].Content, "Department Context: Registrar")
	assert.Contains(t, messages[0].Content, "Student: What is the attendance policy?")
	assert.Contains(t, messages[1].Content, "[1] (policy.pdf)")
	assert.Contains(t, messages[1].Content, "[2] (handbook.pdf)")
	assert.Contains(t, messages[1].Content, "Student Question: What is the attendance policy?")

	turns := f.conversations.Turns("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleStudent, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, resp.Answer, turns[1].Content)
}

func TestAnswer_ApprovedOnly(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf", "handbook.pdf")
	require.NoError(t, f.registry.Approve("handbook.pdf"))

	resp, err := f.pipeline.Answer(context.Background(), Request{Question: "hours?", ApprovedOnly: true})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "handbook.pdf", resp.Sources[0].Fragment.Source)
}

func TestAnswer_RateLimitFallback(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"travel", "Does my passport need six months validity?", "passport or travel document"},
		{"admissions", "How do I apply for admission?", "admissions or applications"},
		{"generic", "Where is the library?", "I understand your question about \"Where is the library?\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestPipeline(t, nil)
			f.seed(t, "policy.pdf")
			f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
				return "", errors.New("error 429: Too Many Requests")
			}

			resp, err := f.pipeline.Answer(context.Background(), Request{Session: "s", Question: tt.question})
			require.NoError(t, err)
			assert.True(t, resp.Degraded)
			assert.Empty(t, resp.Sources)
			assert.Contains(t, resp.Answer, tt.want)

			turns := f.conversations.Turns("s")
			require.Len(t, turns, 2)
			assert.Equal(t, resp.Answer, turns[1].Content)
		})
	}
}

func TestAnswer_GenerationFailure(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")
	cause := errors.New("model exploded")
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", cause
	}

	resp, err := f.pipeline.Answer(context.Background(), Request{Session: "s", Question: "hello"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, core.ErrGenerationFailure)
	assert.ErrorIs(t, err, cause)

	// an unanswered question leaves the session untouched
	assert.Empty(t, f.conversations.Turns("s"))

	f.generator.GenerateFunc = nil
	_, err = f.pipeline.Answer(context.Background(), Request{Session: "s", Question: "hello again"})
	require.NoError(t, err)
	turns := f.conversations.Turns("s")
	require.Len(t, turns, 2)
	assert.Equal(t, "hello again", turns[0].Content)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
}

func TestAnswer_Validation(t *testing.T) {
	f := setupTestPipeline(t, nil)

	_, err := f.pipeline.Answer(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = f.pipeline.Answer(context.Background(), Request{Question: "hi", Strategy: "map_reduce"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestAnswer_RawSkipsHistory(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")

	_, err := f.pipeline.Answer(context.Background(), Request{Session: "s", Question: "hi", Raw: true})
	require.NoError(t, err)

	messages := f.generator.LastMessages()
	assert.Equal(t, queryPrompt, messages[0].Content)
	assert.Empty(t, f.conversations.Turns("s"))
}

func TestAnswer_EngineBuiltOnce(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.Answer(context.Background(), Request{Question: "hi", K: 3})
		require.NoError(t, err)
	}
	_, err := f.pipeline.Answer(context.Background(), Request{Question: "hi", K: 3, Strategy: "refine"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.pipeline.Engines().Len())
	assert.Equal(t, 2, f.pipeline.Engines().Built())
}

func TestStream_Order(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf", "handbook.pdf")
	f.generator.Chunks = []string{"Classes ", "start ", "Monday."}

	events, err := f.pipeline.Stream(context.Background(), Request{Session: "s", Question: "When do classes start?"})
	require.NoError(t, err)
	got := collect(t, events)

	assert.Equal(t, []EventType{
		EventStatus, EventDoc, EventDoc, EventStatus,
		EventToken, EventToken, EventToken, EventDone,
	}, types(got))
	assert.Equal(t, StatusSearching, got[0].Message)
	assert.Equal(t, "policy.pdf", got[1].Source)
	assert.Equal(t, "handbook.pdf", got[2].Source)
	assert.LessOrEqual(t, len([]rune(got[1].Preview)), previewLength+3)
	assert.Equal(t, StatusGenerating, got[3].Message)
	assert.Equal(t, "Monday.", got[6].Text)

	turns := f.conversations.Turns("s")
	require.Len(t, turns, 2)
	assert.Equal(t, "Classes start Monday.", turns[1].Content)
}

func TestStream_NoIndex(t *testing.T) {
	f := setupTestPipeline(t, nil)

	events, err := f.pipeline.Stream(context.Background(), Request{Question: "hello"})
	require.NoError(t, err)
	got := collect(t, events)

	assert.Equal(t, []EventType{EventStatus, EventToken, EventDone}, types(got))
	assert.Contains(t, got[1].Text, "no documents have been uploaded")
	assert.Zero(t, f.generator.CallCount())
}

func TestStream_Failure(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", errors.New("connection reset")
	}

	events, err := f.pipeline.Stream(context.Background(), Request{Session: "s", Question: "hello"})
	require.NoError(t, err)
	got := collect(t, events)

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, EventError, got[len(got)-2].Type)
	assert.Contains(t, got[len(got)-2].Message, "connection reset")
	assert.Equal(t, EventDone, got[len(got)-1].Type)
	assert.Empty(t, f.conversations.Turns("s"))
}

func TestStream_RateLimit(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")
	f.generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", ai.ErrRateLimited
	}

	events, err := f.pipeline.Stream(context.Background(), Request{Question: "visa rules?"})
	require.NoError(t, err)
	got := collect(t, events)

	last := got[len(got)-2]
	assert.Equal(t, EventToken, last.Type)
	assert.Contains(t, last.Text, "passport or travel document")
	assert.Equal(t, EventDone, got[len(got)-1].Type)
}

func TestStream_Cancel(t *testing.T) {
	f := setupTestPipeline(t, nil)
	f.seed(t, "policy.pdf")
	chunks := make([]string, 1000)
	for i := range chunks {
		chunks[i] = "word "
	}
	f.generator.Chunks = chunks

	ctx, cancel := context.WithCancel(context.Background())
	events, err := f.pipeline.Stream(ctx, Request{Question: "hello"})
	require.NoError(t, err)

	<-events
	cancel()

	// the producer stops and closes the channel without emitting every token
	got := collect(t, events)
	assert.Less(t, len(got), len(chunks))
}

func TestStream_Validation(t *testing.T) {
	f := setupTestPipeline(t, nil)

	events, err := f.pipeline.Stream(context.Background(), Request{Question: ""})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Nil(t, events)
}

func TestVoice(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		f := setupTestPipeline(t, mock.NewMockSpeech("What are the library hours?"))
		f.seed(t, "policy.pdf")

		resp, err := f.pipeline.Voice(context.Background(), Request{Session: "v"}, []byte("RIFF"), "question.wav")
		require.NoError(t, err)

		assert.Equal(t, "What are the library hours?", resp.Transcript)
		assert.Equal(t, []byte("audio:"+resp.Response.Answer), resp.Audio)
		transcribed, synthesized := f.speech.Calls()
		assert.Equal(t, 1, transcribed)
		assert.Equal(t, 1, synthesized)
	})

	t.Run("speech not configured", func(t *testing.T) {
		f := setupTestPipeline(t, nil)

		_, err := f.pipeline.Voice(context.Background(), Request{}, []byte("RIFF"), "question.wav")
		assert.ErrorIs(t, err, ErrSpeechUnavailable)
	})

	t.Run("blank transcript", func(t *testing.T) {
		f := setupTestPipeline(t, mock.NewMockSpeech("  "))

		_, err := f.pipeline.Voice(context.Background(), Request{}, []byte("RIFF"), "question.wav")
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	})
}
