package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"visionchat/internal/metrics"
	"visionchat/internal/models"
	"visionchat/internal/service/ai"
	"visionchat/internal/service/usage"
	"visionchat/internal/session"
)

// ImageMarker stands in for the user text of an image-only turn.
const ImageMarker = "[image]"

// Runner serialises work per key. *worker.Dispatcher implements it.
type Runner interface {
	Do(ctx context.Context, key string, fn func(context.Context) error) error
}

type Input struct {
	Text  string
	Image *models.ImageAttachment
}

type Result struct {
	Response string
	// History is the session history after the turn was committed; nil for
	// apps without history.
	History []models.Turn
}

type Service struct {
	client  ai.Client
	store   session.Store
	runner  Runner
	usage   usage.Recorder
	logger  *zap.Logger
	timeout time.Duration
}

func NewService(client ai.Client, store session.Store, runner Runner, recorder usage.Recorder, logger *zap.Logger, timeout time.Duration) (*Service, error) {
	if client == nil {
		return nil, errors.New("ai client is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if recorder == nil {
		recorder = usage.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		store:   store,
		runner:  runner,
		usage:   recorder,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Submit sends one submission and waits for the whole response. Apps that
// stream still stream from the model; fragments are concatenated.
func (s *Service) Submit(ctx context.Context, sc *session.Context, in Input) (*Result, error) {
	profile, ok := Lookup(sc.App)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApp, sc.App)
	}
	return s.submit(ctx, profile, sc, in, profile.Streaming, nil)
}

// SubmitStream is Submit with fragments delivered to onChunk as they arrive.
func (s *Service) SubmitStream(ctx context.Context, sc *session.Context, in Input, onChunk func(string) error) (*Result, error) {
	profile, ok := Lookup(sc.App)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApp, sc.App)
	}
	return s.submit(ctx, profile, sc, in, true, onChunk)
}

// History returns the committed turns of a session.
func (s *Service) History(ctx context.Context, sc *session.Context) ([]models.Turn, error) {
	current, err := s.store.Load(ctx, sc.ID)
	if errors.Is(err, session.ErrNotFound) {
		return sc.History.All(), nil
	}
	if err != nil {
		return nil, err
	}
	return current.History.All(), nil
}

// EndSession discards the session and its history.
func (s *Service) EndSession(ctx context.Context, sc *session.Context) error {
	return s.store.Discard(ctx, sc.ID)
}

func (s *Service) submit(ctx context.Context, profile Profile, sc *session.Context, in Input, stream bool, onChunk func(string) error) (*Result, error) {
	start := time.Now()
	in.Text = strings.TrimSpace(in.Text)
	rec := models.UsageRecord{
		SessionID: sc.ID,
		App:       profile.Name,
		HasText:   in.Text != "",
		HasImage:  !in.Image.Empty(),
		Streamed:  stream,
	}

	if err := profile.Validate(in); err != nil {
		s.finish(ctx, rec, start, err)
		return nil, err
	}

	var result *Result
	err := s.runner.Do(ctx, sc.ID, func(ctx context.Context) error {
		// reload inside the job: an earlier queued submission may have
		// committed turns since the caller loaded sc
		current := sc
		if profile.History {
			loaded, err := s.store.Load(ctx, sc.ID)
			switch {
			case err == nil:
				current = loaded
			case !errors.Is(err, session.ErrNotFound):
				return fmt.Errorf("load session: %w", err)
			}
		}

		var history []models.Turn
		if profile.History {
			history = current.History.All()
		}
		parts := ai.BuildParts(history, profile.Instruction, in.Text, in.Image)

		text, err := s.call(ctx, profile.Name, parts, stream, onChunk)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrModel, err)
		}

		result = &Result{Response: text}
		if profile.History {
			userText := in.Text
			if userText == "" {
				userText = ImageMarker
			}
			current.History.Append(models.UserTurn(userText), models.AssistantTurn(text))
			if err := s.store.Save(ctx, current); err != nil {
				s.logger.Error("save session", zap.String("session", sc.ID), zap.Error(err))
			}
			if current != sc {
				sc.History = current.History
			}
			result.History = current.History.All()
		}
		return nil
	})
	s.finish(ctx, rec, start, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) call(ctx context.Context, app string, parts []models.Part, stream bool, onChunk func(string) error) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	mode := "generate"
	if stream {
		mode = "stream"
	}
	start := time.Now()
	defer func() {
		metrics.ModelLatency.WithLabelValues(app, mode).Observe(time.Since(start).Seconds())
	}()

	if !stream {
		return s.client.Generate(ctx, parts)
	}
	st, err := s.client.Stream(ctx, parts)
	if err != nil {
		return "", err
	}
	return ai.Collect(st, onChunk)
}

func (s *Service) finish(ctx context.Context, rec models.UsageRecord, start time.Time, err error) {
	rec.DurationMS = time.Since(start).Milliseconds()
	rec.Outcome = models.OutcomeOK
	if err != nil {
		if _, ok := AsWarning(err); ok {
			rec.Outcome = models.OutcomeWarning
		} else {
			rec.Outcome = models.OutcomeError
			rec.Error = err.Error()
		}
	}
	metrics.Submissions.WithLabelValues(rec.App, string(rec.Outcome)).Inc()

	if err != nil && rec.Outcome == models.OutcomeError {
		s.logger.Warn("submission failed",
			zap.String("app", rec.App),
			zap.String("session", rec.SessionID),
			zap.Error(err))
	}
	if rerr := s.usage.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		s.logger.Error("record usage", zap.Error(rerr))
	}
}
