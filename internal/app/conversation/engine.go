package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// ChunkFunc observes the bot placeholder each time a chunk is applied. It is
// called without the service lock held.
type ChunkFunc func(msg domain.Message)

// SendResult is the outcome of a send that reached the backend.
type SendResult struct {
	ChatID      domain.ChatID  `json:"chat_id"`
	UserMessage domain.Message `json:"user_message"`
	BotMessage  domain.Message `json:"bot_message"`

	// Failed is set when the stream broke; BotMessage then carries
	// FailureText and Err the cause.
	Failed bool  `json:"failed"`
	Err    error `json:"-"`

	// Stale is set when the chat stopped being active before the reply
	// finished; the live view was left alone.
	Stale bool `json:"stale,omitempty"`
}

// streamTarget pins an in-flight reply to the state it was started in.
type streamTarget struct {
	chatID  domain.ChatID
	owner   domain.UserID
	epoch   uint64
	liveGen uint64
	botID   domain.MessageID
}

// SendMessage sends text in the active chat and streams the reply into the
// live view. Precondition failures return a validation error and change
// nothing. A broken stream is not an error: the result is marked Failed.
func (s *Service) SendMessage(ctx context.Context, text string, onChunk ChunkFunc) (*SendResult, error) {
	logger := observability.LoggerFromContext(ctx)

	target, chat, userMsg, err := s.beginSend(ctx, text)
	if err != nil {
		if errors.Is(err, domain.ErrInitialization) {
			observability.MessagesSent.WithLabelValues("init_failed").Inc()
		} else {
			observability.MessagesSent.WithLabelValues("rejected").Inc()
		}
		logger.Info("send rejected", "error", err)
		return nil, err
	}
	defer s.endSend()

	logger = logger.With("chat_id", target.chatID)
	logger.Info("sending message", "length", len(userMsg.Text))

	var (
		acc       strings.Builder
		streamErr error
	)
	for chunk, err := range chat.SendStream(ctx, userMsg.Text) {
		if err != nil {
			streamErr = err
			break
		}
		acc.WriteString(chunk.Text)
		if msg, ok := s.applyChunk(target, acc.String()); ok && onChunk != nil {
			onChunk(msg)
		}
	}

	res := s.finishSend(ctx, target, userMsg, acc.String(), streamErr)
	logger.Info("reply finished", "failed", res.Failed, "stale", res.Stale, "length", len(res.BotMessage.Text))
	return res, nil
}

// beginSend checks the preconditions, makes sure a backend session exists and
// appends the user message plus the bot placeholder.
func (s *Service) beginSend(ctx context.Context, text string) (streamTarget, domain.ExchangeSession, domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var none streamTarget
	if err := s.ready(); err != nil {
		return none, nil, domain.Message{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.notify("Cannot send empty message or no active chat selected.", domain.NoticeError)
		return none, nil, domain.Message{}, domain.ErrEmptyMessage
	}
	if s.activeID == "" || s.liveFor != s.activeID {
		s.notify("Cannot send empty message or no active chat selected.", domain.NoticeError)
		return none, nil, domain.Message{}, domain.ErrNoActiveChat
	}
	if s.busy {
		s.notify("Please wait for the current response to complete.", domain.NoticeInfo)
		return none, nil, domain.Message{}, domain.ErrBusy
	}

	st := s.ident.State()
	switch {
	case st.IsAuthPending():
		s.notify("Finish signing in to continue.", domain.NoticeInfo)
		return none, nil, domain.Message{}, domain.ErrAuthPending
	case st.IsGuest() && (s.guestChat == nil || s.guestChat.ID != s.activeID):
		s.redirectToLogin(ctx)
		return none, nil, domain.Message{}, domain.ErrLoginRequired
	}

	if s.chat == nil {
		s.notify("Chat session not ready. Attempting to re-initialize...", domain.NoticeInfo)
		chat, err := s.openExchange(ctx, s.live)
		if err != nil {
			s.notify("Failed to reinitialize session. Please try starting a new chat or refreshing.", domain.NoticeError)
			if !errors.Is(err, domain.ErrInitialization) {
				err = fmt.Errorf("%w: %w", domain.ErrInitialization, err)
			}
			return none, nil, domain.Message{}, err
		}
		s.chat = chat
	}

	now := s.now()
	userMsg := domain.Message{
		ID:        history.NewUserMessageID(),
		Text:      text,
		Sender:    domain.SenderUser,
		Timestamp: now,
	}
	placeholder := domain.Message{
		ID:        history.NewBotMessageID(),
		Sender:    domain.SenderBot,
		Timestamp: now,
		Streaming: true,
	}

	if history.OnlySeed(s.live) {
		s.live = nil
	}
	s.live = append(s.live, userMsg, placeholder)
	s.busy = true

	target := streamTarget{
		chatID:  s.activeID,
		owner:   s.repo.Owner(),
		epoch:   s.epoch,
		liveGen: s.liveGen,
		botID:   placeholder.ID,
	}
	return target, s.chat, userMsg, nil
}

func (s *Service) endSend() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Service) isCurrent(t streamTarget) bool {
	return t.epoch == s.epoch && t.liveGen == s.liveGen && t.chatID == s.activeID
}

// applyChunk rewrites the placeholder with the accumulated text. Chunks for
// a chat that is no longer active are dropped.
func (s *Service) applyChunk(t streamTarget, text string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(t) {
		observability.StaleChunksDropped.Inc()
		return domain.Message{}, false
	}
	for i := range s.live {
		if s.live[i].ID == t.botID {
			s.live[i].Text = text
			observability.StreamChunks.Inc()
			return s.live[i], true
		}
	}
	return domain.Message{}, false
}

func (s *Service) finishSend(ctx context.Context, t streamTarget, userMsg domain.Message, text string, streamErr error) *SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	bot := domain.Message{
		ID:        t.botID,
		Text:      text,
		Sender:    domain.SenderBot,
		Timestamp: s.now(),
	}
	res := &SendResult{ChatID: t.chatID, UserMessage: userMsg}

	if streamErr != nil {
		bot.Text = FailureText
		res.Failed = true
		res.Err = streamErr
		observability.MessagesSent.WithLabelValues("stream_failed").Inc()
		observability.LoggerFromContext(ctx).Error("reply stream failed", "chat_id", t.chatID, "error", streamErr)
		s.notify("Aiva encountered an error: "+streamErr.Error(), domain.NoticeError)
	} else {
		observability.MessagesSent.WithLabelValues("ok").Inc()
	}
	res.BotMessage = bot

	if s.isCurrent(t) {
		for i := range s.live {
			if s.live[i].ID == t.botID {
				s.live[i] = bot
			}
		}
		s.persistActive(ctx)
		return res
	}

	res.Stale = true
	s.settleLate(ctx, t, bot)
	return res
}

// settleLate writes a reply that finished after its chat was left into the
// stored copy of that chat, so the placeholder saved on the way out does not
// stay half-streamed. The copy belongs to the user who sent the message, even
// if someone else is signed in by now. Guest replies are dropped.
func (s *Service) settleLate(ctx context.Context, t streamTarget, bot domain.Message) {
	logger := observability.LoggerFromContext(ctx).With("chat_id", t.chatID)

	if t.owner == "" {
		logger.Info("dropping late guest reply")
		return
	}

	msg := history.ToStored([]domain.Message{bot})[0]
	if !s.repo.PatchStored(ctx, t.owner, t.chatID, msg) {
		logger.Info("dropping reply, placeholder not stored", "user_id", t.owner)
		return
	}
	if t.owner != s.repo.Owner() || !s.ident.State().IsAuthenticated() {
		logger.Info("late reply stored for previous user", "user_id", t.owner)
		return
	}

	// The chat may have been re-opened while the reply was running. Its
	// backend session was built from the partial text.
	if s.liveFor == t.chatID {
		for i := range s.live {
			if s.live[i].ID == t.botID {
				s.live[i] = bot
			}
		}
		s.chat = nil
		if chat, err := s.openExchange(ctx, s.live); err == nil {
			s.chat = chat
		}
	}
	logger.Info("late reply stored")
}
