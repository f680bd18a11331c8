package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/TIANLI0/PersonWatch/config"
	"github.com/TIANLI0/PersonWatch/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var errEmptyChatID = errors.New("telegram chat id is empty")

// TelegramRelay 把处理后的图片发送到固定的聊天。
// bot 在第一次使用时创建，创建失败下次重试。
type TelegramRelay struct {
	token    string
	endpoint string
	client   *http.Client

	chatID   int64
	channel  string // 非空时按 @用户名 发送
	chatName string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramRelay 只校验配置，不访问网络
func NewTelegramRelay(cfg *config.TelegramConfig) (*TelegramRelay, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	t := &TelegramRelay{
		token:    cfg.Token,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}

	chat := strings.TrimSpace(cfg.ChatID)
	switch {
	case chat == "":
		return nil, errEmptyChatID
	case strings.HasPrefix(chat, "@"):
		t.channel = chat
	default:
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", chat, err)
		}
		t.chatID = id
	}
	t.chatName = chat

	return t, nil
}

// Connect 提前创建 bot（会调用一次 getMe）
func (t *TelegramRelay) Connect() error {
	_, err := t.botAPI()
	return err
}

func (t *TelegramRelay) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = false
	t.bot = bot
	return bot, nil
}

func (t *TelegramRelay) photo(file tgbotapi.FileBytes) tgbotapi.PhotoConfig {
	if t.channel != "" {
		return tgbotapi.NewPhotoToChannel(t.channel, file)
	}
	return tgbotapi.NewPhoto(t.chatID, file)
}

// Relay 发送图片；Telegram 返回 ok=false 时库会返回错误
func (t *TelegramRelay) Relay(_ context.Context, image []byte, filename string) error {
	if filename == "" {
		filename = "image.jpg"
	}

	bot, err := t.botAPI()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}

	msg, err := bot.Send(t.photo(tgbotapi.FileBytes{Name: filename, Bytes: image}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}

	utils.Logger.Debug("photo relayed",
		zap.String("chat", t.chatName),
		zap.Int("message_id", msg.MessageID))
	return nil
}
