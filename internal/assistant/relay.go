// Package assistant answers "@" mentions in room chat through an external
// question-answering service.
package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/mindora/relay-server/internal/metrics"
	"github.com/mindora/relay-server/internal/ratelimit"
)

const (
	// DefaultLabel is the sender name answers are posted under.
	DefaultLabel = "Mindora AI"
	// DefaultTimeout bounds a single answer request.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxInFlight caps concurrent answer requests across all rooms.
	DefaultMaxInFlight = 32
)

// Answerer turns a question into an answer.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// IsMention reports whether a chat message asks the assistant something.
func IsMention(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "@")
}

// Options tune a Relay. Zero values fall back to the defaults above.
type Options struct {
	Label       string
	Timeout     time.Duration
	MaxInFlight int64
	Limiter     ratelimit.Limiter
	Metrics     *metrics.Metrics
	Logger      *zerolog.Logger
}

// Relay schedules one answer request per mention and hands the answer back
// through the reply callback. It never blocks its caller.
type Relay struct {
	answerer Answerer
	label    string
	timeout  time.Duration
	sem      *semaphore.Weighted
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	log      *zerolog.Logger

	wg sync.WaitGroup
}

// NewRelay creates a relay that asks answerer about every mention it observes.
func NewRelay(answerer Answerer, opts Options) *Relay {
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Relay{
		answerer: answerer,
		label:    opts.Label,
		timeout:  opts.Timeout,
		sem:      semaphore.NewWeighted(opts.MaxInFlight),
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
}

// Observe starts an answer request when text is a mention and returns whether
// one was scheduled. The full message text, "@" included, is the question.
func (r *Relay) Observe(ctx context.Context, room, text string, reply func(sender, text string)) bool {
	if !IsMention(text) {
		return false
	}
	// Nothing may be scheduled once the caller is shutting down; Wait relies on it.
	if ctx.Err() != nil {
		return false
	}
	if !r.sem.TryAcquire(1) {
		r.metrics.Mention(metrics.MentionSaturated)
		r.log.Warn().Str("room", room).Msg("too many assistant requests in flight, mention dropped")
		return false
	}

	r.metrics.Mention(metrics.MentionScheduled)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		r.answer(ctx, room, text, reply)
	}()
	return true
}

func (r *Relay) answer(parent context.Context, room, question string, reply func(sender, text string)) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	allowed, err := r.limiter.Allow(ctx, room)
	if err != nil {
		// Fail open: a limiter outage must not silence the assistant.
		r.log.Warn().Err(err).Str("room", room).Msg("mention rate limit unavailable")
		allowed = true
	}
	if !allowed {
		r.metrics.Mention(metrics.MentionThrottled)
		r.log.Info().Str("room", room).Msg("mention rate limit reached, mention dropped")
		return
	}

	start := time.Now()
	answer, err := r.answerer.Answer(ctx, question)
	r.metrics.ObserveAnswer(time.Since(start))
	if err != nil {
		r.metrics.Mention(metrics.MentionFailed)
		r.log.Warn().Err(err).Str("room", room).Msg("assistant answer failed")
		return
	}

	r.metrics.Mention(metrics.MentionAnswered)
	reply(r.label, answer)
}

// Wait blocks until every scheduled request has finished.
func (r *Relay) Wait() {
	r.wg.Wait()
}
