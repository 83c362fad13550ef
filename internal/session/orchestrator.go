package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rehearsal-dev/voicescreen/internal/observe"
	"github.com/rehearsal-dev/voicescreen/internal/protocol"
	"github.com/rehearsal-dev/voicescreen/pkg/audio"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/live"
	"github.com/rehearsal-dev/voicescreen/pkg/provider/questions"
)

// Sender delivers server→client messages over the session's transport.
// Implementations must preserve send order.
type Sender interface {
	Send(ctx context.Context, msg protocol.ServerMessage) error
}

// OrchestratorConfig holds per-session tuning knobs.
type OrchestratorConfig struct {
	// QuestionCount is the number of questions per interview. Default: 3.
	QuestionCount int

	// MinAnswer is the minimum candidate audio duration for an answer to
	// count; shorter answers get a retry. Default: 900ms.
	MinAnswer time.Duration

	// MinChunks is the minimum number of candidate audio messages for an
	// answer to count. Default: 3.
	MinChunks int

	// GraceDelay is the pause after an accepted answer before the next
	// question is requested, so turn-taking feels natural. Default: 2.2s.
	GraceDelay time.Duration

	// SafetyTimeout bounds the whole session independent of per-turn
	// silence handling. Default: 10m.
	SafetyTimeout time.Duration

	// Voice selects the upstream engine's synthesised voice.
	Voice string
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 3
	}
	if c.MinAnswer <= 0 {
		c.MinAnswer = 900 * time.Millisecond
	}
	if c.MinChunks <= 0 {
		c.MinChunks = 3
	}
	if c.GraceDelay <= 0 {
		c.GraceDelay = 2200 * time.Millisecond
	}
	if c.SafetyTimeout <= 0 {
		c.SafetyTimeout = 10 * time.Minute
	}
	return c
}

// OrchestratorDeps holds the collaborators an orchestrator drives.
type OrchestratorDeps struct {
	// Live connects to the upstream conversational engine.
	Live live.Provider

	// Questions generates the interview's question set.
	Questions questions.Provider

	// FallbackQuestions is consulted when Questions fails; typically the
	// static bank. Optional.
	FallbackQuestions questions.Provider

	// Finalizer scores the finished interview.
	Finalizer *Finalizer

	// Store registers the session for the idle-eviction sweep. Optional.
	Store *Store

	// Metrics records session telemetry; nil means observe.DefaultMetrics.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator runs one interview session's turn-taking state machine.
//
// All session state is mutated from the single Run goroutine; the transport
// read loop and the upstream receive loop feed it through channels.
type Orchestrator struct {
	cfg     OrchestratorConfig
	deps    OrchestratorDeps
	log     *slog.Logger
	metrics *observe.Metrics
}

// NewOrchestrator creates an orchestrator with the given dependencies.
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Orchestrator{
		cfg:     cfg.withDefaults(),
		deps:    deps,
		log:     log,
		metrics: metrics,
	}
}

// Run drives one session from transport connect to completion. It returns
// nil on clean completion or client disconnect, and an error when the
// session ended in the error state. in is the decoded client message
// stream; it must be closed when the transport read side ends.
func (o *Orchestrator) Run(ctx context.Context, in <-chan protocol.ClientMessage, send Sender) error {
	sess := New("", "")
	if o.deps.Store != nil {
		o.deps.Store.Put(sess)
		defer o.deps.Store.Remove(sess.ID)
	}
	o.metrics.ActiveSessions.Add(ctx, 1)
	defer o.metrics.ActiveSessions.Add(ctx, -1)

	ctx, cancel := context.WithTimeoutCause(ctx, o.cfg.SafetyTimeout, errSafetyTimeout)
	defer cancel()

	log := o.log.With("session_id", sess.ID)

	// Phase 1: handshake.
	if err := o.awaitHandshake(ctx, sess, in, log); err != nil {
		if errors.Is(err, errClientGone) {
			o.metrics.RecordSessionEnd(ctx, "abandoned")
			return nil
		}
		return o.fail(ctx, sess, send, log, "could not start the interview", err)
	}
	log = log.With("company", sess.Company, "role", sess.Role)
	log.Info("interview session started")

	// Phase 2: question set and upstream connection.
	qs, err := o.generateQuestions(ctx, sess)
	if err != nil {
		return o.fail(ctx, sess, send, log, "could not prepare interview questions", err)
	}
	sess.SetQuestions(qs)

	connectStart := time.Now()
	handle, err := o.deps.Live.Connect(ctx, live.SessionConfig{
		Voice:        o.cfg.Voice,
		Instructions: interviewerInstructions(sess.Company, sess.Role),
	})
	if err != nil {
		o.metrics.UpstreamErrors.Add(ctx, 1)
		return o.fail(ctx, sess, send, log, "the interviewer is unavailable right now", err)
	}
	defer handle.Close()
	o.metrics.UpstreamConnectDuration.Record(ctx, time.Since(connectStart).Seconds())

	// Phase 3: first question.
	if err := sess.Transition(StateAskingQuestion); err != nil {
		return o.fail(ctx, sess, send, log, internalErrMsg, err)
	}
	if err := o.askNext(ctx, sess, handle, send, log); err != nil {
		return o.fail(ctx, sess, send, log, "could not ask the first question", err)
	}

	// Phase 4: main loop. closing is set once the last answer is accepted
	// and the interviewer is delivering its closing remark.
	var (
		graceCh <-chan time.Time
		closing bool
	)
	for {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			if context.Cause(ctx) == errSafetyTimeout {
				return o.fail(ctx, sess, send, log, "the interview timed out", errSafetyTimeout)
			}
			return o.fail(ctx, sess, send, log, "the interview was interrupted", err)

		case msg, ok := <-in:
			if !ok {
				log.Info("client disconnected", "state", string(sess.State))
				o.metrics.RecordSessionEnd(ctx, "abandoned")
				return nil
			}
			accepted, err := o.handleClient(ctx, sess, handle, send, log, &msg)
			if err != nil {
				return o.fail(ctx, sess, send, log, internalErrMsg, err)
			}
			if accepted {
				graceCh = time.After(o.cfg.GraceDelay)
			}

		case ev, ok := <-handle.Events():
			if !ok {
				o.metrics.UpstreamErrors.Add(ctx, 1)
				err := handle.Err()
				if err == nil {
					err = fmt.Errorf("upstream session ended unexpectedly")
				}
				return o.fail(ctx, sess, send, log, "the interviewer's connection was lost", err)
			}
			done, err := o.handleUpstream(ctx, sess, send, log, ev, closing)
			if err != nil {
				return o.fail(ctx, sess, send, log, internalErrMsg, err)
			}
			if done {
				return o.review(ctx, sess, handle, send, log)
			}

		case <-graceCh:
			graceCh = nil
			turn := sess.CurrentTurn()
			turn.Answer = turn.Transcript.Finalize()
			log.Info("answer closed",
				"question_index", turn.Index,
				"answer_chars", len(turn.Answer),
				"audio_ms", turn.AudioMS)

			if sess.Remaining() > 0 {
				if err := sess.Transition(StateAskingQuestion); err != nil {
					return o.fail(ctx, sess, send, log, internalErrMsg, err)
				}
				if err := o.askNext(ctx, sess, handle, send, log); err != nil {
					return o.fail(ctx, sess, send, log, "could not ask the next question", err)
				}
				continue
			}

			// Last answer is in: have the interviewer close out, then
			// review once its utterance completes.
			closing = true
			if err := handle.SendText(closingInstruction); err != nil {
				log.Warn("closing remark failed, reviewing immediately", "error", err)
				return o.review(ctx, sess, handle, send, log)
			}
		}
	}
}

var (
	errSafetyTimeout = errors.New("session safety timeout exceeded")
	errClientGone    = errors.New("client disconnected")
)

const internalErrMsg = "something went wrong with the interview"

// awaitHandshake consumes client messages until the handshake arrives.
// Anything else this early is dropped and logged.
func (o *Orchestrator) awaitHandshake(ctx context.Context, sess *Session, in <-chan protocol.ClientMessage, log *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return errClientGone
			}
			if msg.Type != protocol.TypeHandshake {
				log.Warn("dropping message before handshake", "type", msg.Type)
				continue
			}
			sess.Company = msg.Company
			sess.Role = msg.Role
			if sess.Company == "" {
				sess.Company = "a company"
			}
			if sess.Role == "" {
				sess.Role = "a role"
			}
			sess.Touch()
			return nil
		}
	}
}

// generateQuestions asks the configured provider for the question set,
// falling back to the static bank when it fails.
func (o *Orchestrator) generateQuestions(ctx context.Context, sess *Session) ([]string, error) {
	req := questions.Request{
		Company: sess.Company,
		Role:    sess.Role,
		Count:   o.cfg.QuestionCount,
	}

	start := time.Now()
	qs, err := o.deps.Questions.Generate(ctx, req)
	o.metrics.QuestionGenDuration.Record(ctx, time.Since(start).Seconds())
	if err == nil {
		return qs, nil
	}

	if o.deps.FallbackQuestions == nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	o.log.Warn("question generation failed, using fallback bank",
		"session_id", sess.ID, "error", err)
	qs, ferr := o.deps.FallbackQuestions.Generate(ctx, req)
	if ferr != nil {
		return nil, fmt.Errorf("generate questions: %w (fallback: %w)", err, ferr)
	}
	return qs, nil
}

// askNext opens the next turn: the canonical question text goes to the
// client first (which also tells it to stop recording), then the upstream
// engine is instructed to speak it.
func (o *Orchestrator) askNext(ctx context.Context, sess *Session, handle live.SessionHandle, send Sender, log *slog.Logger) error {
	turn := sess.AdvanceTurn()
	if turn == nil {
		return fmt.Errorf("ask question: no questions remaining")
	}
	log.Info("asking question", "question_index", turn.Index, "total", len(sess.Turns))

	if err := send.Send(ctx, protocol.Question(turn.Question, turn.Index, len(sess.Turns))); err != nil {
		return fmt.Errorf("send question %d: %w", turn.Index, err)
	}
	if err := handle.SendText(askInstruction(turn.Index, turn.Question)); err != nil {
		return fmt.Errorf("instruct upstream for question %d: %w", turn.Index, err)
	}
	return nil
}

// handleClient processes one decoded client message. It returns
// accepted=true when an end_of_turn closed the turn as a usable answer and
// the caller should arm the grace timer.
func (o *Orchestrator) handleClient(ctx context.Context, sess *Session, handle live.SessionHandle, send Sender, log *slog.Logger, msg *protocol.ClientMessage) (accepted bool, err error) {
	switch msg.Type {
	case protocol.TypeAudio:
		return false, o.handleCandidateAudio(ctx, sess, handle, log, msg)

	case protocol.TypeEndOfTurn:
		return o.handleEndOfTurn(ctx, sess, handle, send, log, msg)

	case protocol.TypeTranscriptFinal:
		turn := sess.CurrentTurn()
		if turn == nil || msg.QuestionIndex != turn.Index {
			log.Warn("dropping transcript for wrong turn",
				"question_index", msg.QuestionIndex, "state", string(sess.State))
			return false, nil
		}
		turn.Transcript.AddFinal(msg.Text)
		sess.Touch()
		return false, nil

	default:
		log.Warn("dropping unexpected client message",
			"type", msg.Type, "state", string(sess.State))
		return false, nil
	}
}

func (o *Orchestrator) handleCandidateAudio(ctx context.Context, sess *Session, handle live.SessionHandle, log *slog.Logger, msg *protocol.ClientMessage) error {
	switch sess.State {
	case StateWaitingForCandidate:
		if err := sess.Transition(StateCandidateSpeaking); err != nil {
			return err
		}
	case StateCandidateSpeaking:
		// Normal flow.
	default:
		// Stray audio while the interviewer is speaking or the session is
		// processing. Expected during hand-offs; dropped.
		log.Debug("dropping candidate audio", "state", string(sess.State))
		return nil
	}

	pcm, err := msg.PCM()
	if err != nil {
		// Malformed frame: drop it, keep the session.
		log.Warn("dropping malformed audio frame", "error", err)
		return nil
	}

	turn := sess.CurrentTurn()
	sess.answerTurn = turn
	turn.AudioChunks++
	turn.AudioMS += pcmDurationMS(len(pcm))
	sess.Touch()
	o.metrics.RecordAudioFrame(ctx, "outbound")

	if err := handle.SendAudio(pcm); err != nil {
		return fmt.Errorf("forward candidate audio: %w", err)
	}
	return nil
}

func (o *Orchestrator) handleEndOfTurn(ctx context.Context, sess *Session, handle live.SessionHandle, send Sender, log *slog.Logger, msg *protocol.ClientMessage) (accepted bool, err error) {
	if sess.State != StateCandidateSpeaking && sess.State != StateWaitingForCandidate {
		log.Warn("dropping end_of_turn", "state", string(sess.State))
		return false, nil
	}
	if err := sess.Transition(StateProcessingResponse); err != nil {
		return false, err
	}

	turn := sess.CurrentTurn()
	turn.HadSpeech = msg.HadSpeech != nil && *msg.HadSpeech

	reason := ""
	switch {
	case !turn.HadSpeech:
		reason = protocol.ReasonNoSpeech
	case turn.AudioMS < o.cfg.MinAnswer.Milliseconds() || turn.AudioChunks < o.cfg.MinChunks:
		reason = protocol.ReasonTooShort
	}

	if reason != "" {
		log.Info("retrying turn",
			"question_index", turn.Index,
			"reason", reason,
			"audio_ms", turn.AudioMS,
			"audio_chunks", turn.AudioChunks)
		o.metrics.RecordTurn(ctx, reason)

		turn.ResetAnswer()
		if err := sess.Transition(StateWaitingForCandidate); err != nil {
			return false, err
		}
		msg := protocol.ResumeListening(reason, int(o.cfg.MinAnswer.Milliseconds()), o.cfg.MinChunks)
		if err := send.Send(ctx, msg); err != nil {
			return false, fmt.Errorf("send resume_listening: %w", err)
		}
		return false, nil
	}

	// Usable answer. Flush the upstream audio stream so any trailing
	// transcription arrives during the grace window.
	o.metrics.RecordTurn(ctx, "answered")
	if err := handle.EndAudio(); err != nil {
		log.Warn("ending upstream audio stream failed", "error", err)
	}
	return true, nil
}

// handleUpstream processes one upstream engine event. done=true means the
// closing remark finished and the session should move to review.
func (o *Orchestrator) handleUpstream(ctx context.Context, sess *Session, send Sender, log *slog.Logger, ev live.Event, closing bool) (done bool, err error) {
	switch {
	case ev.Audio != nil:
		return false, o.relayInterviewerAudio(ctx, sess, send, log, ev.Audio, closing)

	case ev.Transcript != nil:
		o.handleFragment(sess, log, ev.Transcript)
		return false, nil

	case ev.TurnComplete:
		if closing {
			return true, nil
		}
		switch sess.State {
		case StateAskingQuestion:
			// The engine finished without producing audio we saw; still
			// hand the floor to the candidate.
			if err := sess.Transition(StateInterviewerSpeaking); err != nil {
				return false, err
			}
			fallthrough
		case StateInterviewerSpeaking:
			if err := sess.Transition(StateWaitingForCandidate); err != nil {
				return false, err
			}
			turn := sess.CurrentTurn()
			if err := send.Send(ctx, protocol.TurnComplete(turn.Index, len(sess.Turns))); err != nil {
				return false, fmt.Errorf("send turn_complete: %w", err)
			}
		default:
			log.Debug("ignoring upstream turn_complete", "state", string(sess.State))
		}
		return false, nil

	case ev.Interrupted:
		log.Debug("upstream utterance interrupted", "state", string(sess.State))
		return false, nil
	}
	return false, nil
}

// relayInterviewerAudio forwards engine speech to the client while the
// interviewer holds the floor; anything arriving outside those states is
// dropped so the candidate's open microphone is never talked over.
func (o *Orchestrator) relayInterviewerAudio(ctx context.Context, sess *Session, send Sender, log *slog.Logger, chunk *live.AudioChunk, closing bool) error {
	switch sess.State {
	case StateAskingQuestion:
		if err := sess.Transition(StateInterviewerSpeaking); err != nil {
			return err
		}
	case StateInterviewerSpeaking:
		// Normal flow.
	case StateProcessingResponse:
		if !closing {
			log.Debug("dropping interviewer audio", "state", string(sess.State))
			return nil
		}
	default:
		log.Debug("dropping interviewer audio", "state", string(sess.State))
		return nil
	}

	o.metrics.RecordAudioFrame(ctx, "inbound")
	if err := send.Send(ctx, protocol.ServerAudio(chunk.PCM, chunk.SampleRate)); err != nil {
		return fmt.Errorf("relay interviewer audio: %w", err)
	}
	return nil
}

// handleFragment folds a recognised candidate fragment into the turn
// whose audio produced it, which may no longer be the open turn once the
// next question has been asked. Interviewer fragments are ignored: the
// canonical question text already went to the client.
func (o *Orchestrator) handleFragment(sess *Session, log *slog.Logger, frag *live.Fragment) {
	if frag.Speaker != live.SpeakerCandidate {
		return
	}
	turn := sess.answerTurn
	if turn == nil || turn.Answer != "" {
		log.Debug("dropping candidate transcript", "state", string(sess.State))
		return
	}
	if frag.Final {
		turn.Transcript.AddFinal(frag.Text)
	} else {
		turn.Transcript.AddPartial(frag.Text)
	}
	sess.Touch()
}

// review runs finalization: the upstream session is released, every answer
// is scored, and the verdict goes to the client.
func (o *Orchestrator) review(ctx context.Context, sess *Session, handle live.SessionHandle, send Sender, log *slog.Logger) error {
	if err := sess.Transition(StateReviewing); err != nil {
		return o.fail(ctx, sess, send, log, internalErrMsg, err)
	}
	if err := send.Send(ctx, protocol.Reviewing()); err != nil {
		return o.fail(ctx, sess, send, log, internalErrMsg, err)
	}
	if err := handle.Close(); err != nil {
		log.Warn("closing upstream session failed", "error", err)
	}
	// Anything still buffered on the event stream is discarded so the
	// upstream receive loop can finish while scoring runs.
	go audio.Drain(handle.Events())

	start := time.Now()
	result, err := o.deps.Finalizer.Finalize(ctx, sess)
	o.metrics.FinalizeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return o.fail(ctx, sess, send, log, "your interview could not be scored", err)
	}
	sess.Disqualified = sess.Disqualified || result.Disqualified

	msg := protocol.InterviewComplete(result.Score, result.Disqualified, result.Flags.Map(), result.ScoringVersion)
	if err := send.Send(ctx, msg); err != nil {
		return o.fail(ctx, sess, send, log, internalErrMsg, err)
	}
	if err := sess.Transition(StateComplete); err != nil {
		return o.fail(ctx, sess, send, log, internalErrMsg, err)
	}

	log.Info("interview complete",
		"score", result.Score,
		"disqualified", result.Disqualified,
		"scoring_version", result.ScoringVersion)
	o.metrics.RecordSessionEnd(ctx, "complete")
	return nil
}

// fail forces the session into the error state, surfaces one user-facing
// message, and returns the underlying error to the caller.
func (o *Orchestrator) fail(ctx context.Context, sess *Session, send Sender, log *slog.Logger, userMsg string, err error) error {
	if !sess.State.Terminal() {
		sess.setState(StateError)
		sess.Touch()
		// Best effort: the transport may already be gone.
		if sendErr := send.Send(context.WithoutCancel(ctx), protocol.Error(userMsg)); sendErr != nil {
			log.Debug("could not deliver error message", "error", sendErr)
		}
	}
	log.Error("interview session failed", "state", string(sess.State), "error", err)
	o.metrics.RecordSessionEnd(ctx, "error")
	return fmt.Errorf("session %s: %w", sess.ID, err)
}

// pcmDurationMS converts a PCM16LE byte count at the capture rate to
// milliseconds.
func pcmDurationMS(n int) int64 {
	samples := n / 2
	return int64(samples) * 1000 / protocol.CaptureSampleRate
}

// interviewerInstructions is the system prompt constraining the upstream
// engine for the whole session.
func interviewerInstructions(company, role string) string {
	return fmt.Sprintf(`You are a professional behavioral interviewer at %s conducting an interview for a %s position.

Your role:
1. You will be given the exact question text to ask.
2. Ask the question VERBATIM (no paraphrasing, no extra preamble).
3. Do NOT speak, acknowledge, or ask follow-ups unless you receive an explicit realtime text instruction.
4. After the candidate answers, remain silent until instructed.
5. After the final answer, deliver a brief closing remark ONLY when instructed.`, company, role)
}

// askInstruction tells the engine to speak one question. From the second
// question on it may briefly acknowledge the previous answer first.
func askInstruction(index int, question string) string {
	if index <= 1 {
		return fmt.Sprintf("Ask the candidate exactly this question, verbatim, with no preamble: %s", question)
	}
	return fmt.Sprintf("Briefly acknowledge the candidate's previous answer in one short, neutral sentence, then ask exactly this question, verbatim: %s", question)
}

// closingInstruction ends the interview after the last accepted answer.
const closingInstruction = "Thank the candidate briefly for their time and tell them their responses are now being reviewed. One or two sentences, then stop."
