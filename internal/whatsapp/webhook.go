package whatsapp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasky/internal/agent"
	"tasky/internal/model"
)

// UserUpserter resolves the sender into a stored user.
type UserUpserter interface {
	UpsertFromPhone(ctx context.Context, phoneNumber, username string) (*model.User, error)
}

// Sender delivers outbound messages.
type Sender interface {
	SendText(ctx context.Context, phoneNumber, text string) error
}

// MediaDownloader fetches media content by id.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Webhook wires the Meta webhook endpoints to the agent.
type Webhook struct {
	verifyToken string
	appSecret   string

	users       UserUpserter
	classifier  agent.Classifier
	dispatcher  *agent.Dispatcher
	sender      Sender
	media       MediaDownloader
	transcriber Transcriber
	log         zerolog.Logger
}

func NewWebhook(
	verifyToken, appSecret string,
	users UserUpserter,
	classifier agent.Classifier,
	dispatcher *agent.Dispatcher,
	sender Sender,
	media MediaDownloader,
	transcriber Transcriber,
	log zerolog.Logger,
) *Webhook {
	return &Webhook{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		users:       users,
		classifier:  classifier,
		dispatcher:  dispatcher,
		sender:      sender,
		media:       media,
		transcriber: transcriber,
		log:         log,
	}
}

func (w *Webhook) Register(router *gin.Engine) {
	router.GET("/webhook", w.handleVerify)
	router.POST("/webhook", w.handleEvent)
}

// handleVerify answers Meta's subscription challenge.
func (w *Webhook) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" || challenge == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": "missing query parameters"})
		return
	}
	if mode != "subscribe" || token != w.verifyToken {
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "detail": "verification failed"})
		return
	}
	c.String(http.StatusOK, challenge)
}

// handleEvent processes one webhook delivery. Once the signature checks out
// the endpoint always answers 200 so Meta does not retry.
func (w *Webhook) handleEvent(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": "unreadable body"})
		return
	}

	if !VerifySignature(w.appSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		w.log.Warn().Msg("invalid webhook signature")
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "detail": "invalid signature"})
		return
	}

	incoming, ok := ParseBody(body)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "detail": "non-message event"})
		return
	}

	ctx := c.Request.Context()
	user, err := w.users.UpsertFromPhone(ctx, incoming.PhoneNumber, incoming.Username)
	if err != nil {
		w.log.Error().Err(err).Str("phone", incoming.PhoneNumber).Msg("upsert user failed")
		c.JSON(http.StatusOK, gin.H{"status": "error", "detail": "message processing error"})
		return
	}

	text := incoming.Text
	if incoming.Type == "audio" && incoming.AudioID != "" {
		text = w.transcribeAudio(ctx, user, incoming)
		if text == "" {
			c.JSON(http.StatusOK, gin.H{"status": "error", "detail": "audio transcription failed"})
			return
		}
	}
	if text == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "detail": "no processable content"})
		return
	}

	now := time.Now()
	call, err := w.classifier.Classify(ctx, agent.ClassifyRequest{
		Message:  text,
		Username: user.Username,
		Now:      now,
	})
	if err != nil {
		w.log.Error().Err(err).Str("user_id", user.ID).Msg("classification failed")
		w.reply(ctx, user, "Sorry, something went wrong on my side. Please try again.")
		c.JSON(http.StatusOK, gin.H{"status": "error", "detail": "classification error"})
		return
	}

	reply, err := w.dispatcher.Dispatch(ctx, user, call, now)
	if err != nil {
		w.log.Error().Err(err).Str("user_id", user.ID).Str("tool", string(call.Name)).Msg("dispatch failed")
		w.reply(ctx, user, "Sorry, I couldn't complete that. Please try again.")
		c.JSON(http.StatusOK, gin.H{"status": "error", "detail": "dispatch error"})
		return
	}

	w.reply(ctx, user, reply)
	c.JSON(http.StatusOK, gin.H{"status": "success", "detail": "message processed"})
}

// transcribeAudio downloads and transcribes a voice note, echoing the
// transcription back so the user can confirm what was understood.
func (w *Webhook) transcribeAudio(ctx context.Context, user *model.User, incoming Incoming) string {
	audio, mimeType, err := w.media.DownloadMedia(ctx, incoming.AudioID)
	if err != nil {
		w.log.Error().Err(err).Str("media_id", incoming.AudioID).Msg("media download failed")
		w.reply(ctx, user, "Sorry, I couldn't process your audio message. Please try sending a text message instead.")
		return ""
	}
	if incoming.AudioMime != "" {
		mimeType = incoming.AudioMime
	}

	text, err := w.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil || text == "" {
		w.log.Error().Err(err).Str("media_id", incoming.AudioID).Msg("transcription failed")
		w.reply(ctx, user, "Sorry, I couldn't process your audio message. Please try sending a text message instead.")
		return ""
	}

	w.reply(ctx, user, "You said:\n"+text)
	return text
}

func (w *Webhook) reply(ctx context.Context, user *model.User, text string) {
	if err := w.sender.SendText(ctx, user.PhoneNumber, text); err != nil {
		w.log.Error().Err(err).Str("user_id", user.ID).Msg("send reply failed")
	}
}
