package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smart-nutrition/internal/analysis"
	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/config"
	"smart-nutrition/internal/metrics"
	"smart-nutrition/internal/optimizer"
)

const maxPhotoBytes = 10 << 20

// FoodAnalyzer turns a meal photo into matched foods.
type FoodAnalyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*analysis.Result, error)
}

// Bot wraps the Telegram API, the food analysis and the optimizer.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	analyzer     FoodAnalyzer
	foods        *catalog.Catalog
	optimizer    *optimizer.Optimizer
	metricsStore *metrics.Store
	httpClient   *http.Client
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	analyzer FoodAnalyzer,
	foods *catalog.Catalog,
	opt *optimizer.Optimizer,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		cfg:          cfg,
		analyzer:     analyzer,
		foods:        foods,
		optimizer:    opt,
		metricsStore: metricsStore,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.cfg.IsAllowedTelegramUser(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	if len(msg.Photo) > 0 {
		b.handlePhoto(msg)
		return
	}

	switch msg.Command() {
	case "metrics":
		b.handleMetricsCommand(msg.Chat.ID)
	case "remaining":
		b.handleRemaining(msg)
	default:
		b.send(msg.Chat.ID, helpText)
	}
}

const helpText = "🥗 *Smart Nutrition*\n\n" +
	"• Send a photo of your meal to get its foods and macros.\n" +
	"• `/remaining <kcal> <protein> <carbs> <fat>` suggests foods for what is left of your day.\n" +
	"• `/metrics` shows usage and health."

func (b *Bot) handlePhoto(msg *tgbotapi.Message) {
	sentMsg, err := b.api.Send(markdown(tgbotapi.NewMessage(msg.Chat.ID, "🔍 *Analyzing your meal...*")))
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	var finalText string
	result, err := b.analyzePhoto(ctx, largestPhoto(msg.Photo))
	if err != nil {
		log.Printf("Error analyzing photo: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error analyzing photo:*\n```\n%v\n```", safeErr)
	} else {
		finalText = formatAnalysisMarkdown(result)
	}

	b.editReply(msg.Chat.ID, sentMsg.MessageID, finalText)
}

// editReply replaces the placeholder with text, falling back to plain text
// when Telegram rejects the markdown.
func (b *Bot) editReply(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(edit)
	if err == nil {
		return
	}
	log.Printf("Failed to edit reply as markdown, retrying as plain text: %v", err)

	edit.ParseMode = ""
	if _, err = b.api.Send(edit); err != nil {
		log.Printf("Failed to edit reply: %v", err)
	}
}

func (b *Bot) analyzePhoto(ctx context.Context, photo tgbotapi.PhotoSize) (*analysis.Result, error) {
	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photo: %w", err)
	}
	image, err := download(ctx, b.httpClient, url)
	if err != nil {
		return nil, err
	}
	return b.analyzer.Analyze(ctx, image, mimeFromPath(url))
}

func (b *Bot) handleRemaining(msg *tgbotapi.Message) {
	target, err := parseRemaining(msg.CommandArguments())
	if err != nil {
		b.send(msg.Chat.ID, fmt.Sprintf("⚠️ %v\nUsage: `/remaining 600 40 60 20`", err))
		return
	}

	recs := b.optimizer.RecommendFoods(b.foods.Foods(), target, optimizer.DefaultMaxRecommendations)
	b.send(msg.Chat.ID, formatRecommendationsMarkdown(target, recs))
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(context.Background(), 7)
	if err != nil {
		b.api.Send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}

	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))
	b.send(chatID, formatMetricsMarkdown(usage, health))
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(markdown(tgbotapi.NewMessage(chatID, text))); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}

func markdown(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

// largestPhoto picks the highest resolution variant Telegram sent.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, errors.New("photo is too large")
	}
	return data, nil
}

func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// parseRemaining reads "<kcal> <protein> <carbs> <fat>"; commas are accepted
// as separators.
func parseRemaining(args string) (optimizer.MacroTarget, error) {
	fields := strings.Fields(strings.ReplaceAll(args, ",", " "))
	if len(fields) != 4 {
		return optimizer.MacroTarget{}, fmt.Errorf("expected 4 numbers, got %d", len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return optimizer.MacroTarget{}, fmt.Errorf("%q is not a number", f)
		}
		v[i] = n
	}
	return optimizer.MacroTarget{Calories: v[0], ProteinG: v[1], CarbsG: v[2], FatG: v[3]}, nil
}

// escapeMarkdown escapes model or catalog text placed inside a markdown reply.
func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatAnalysisMarkdown(res *analysis.Result) string {
	var sb strings.Builder
	sb.WriteString("🍽️ *Meal Analysis*\n")
	if res.MealDescription != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", escapeMarkdown(res.MealDescription)))
	}
	sb.WriteString("\n")

	if len(res.MatchedFoods) == 0 {
		sb.WriteString("No foods detected.\n")
	}
	for _, f := range res.MatchedFoods {
		name := f.DetectedName
		if f.MatchedFoodName != nil {
			name = *f.MatchedFoodName
		}
		sb.WriteString(fmt.Sprintf("%s *%s* (%dg): %.0f kcal", f.Emoji, escapeMarkdown(name), f.Grams, f.Calories))
		if f.MatchedFoodID == nil {
			sb.WriteString(" _(estimated)_")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n*Total:* %.0f kcal | P %.1fg | C %.1fg | F %.1fg",
		res.TotalCalories, res.TotalProtein, res.TotalCarbs, res.TotalFat))
	return sb.String()
}

func formatRecommendationsMarkdown(target optimizer.MacroTarget, recs []optimizer.FoodRecommendation) string {
	if target.IsComplete() {
		return "✅ *Goals reached!* Nothing left to eat today."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎯 *Remaining:* %.0f kcal | P %.0fg | C %.0fg | F %.0fg\n\n",
		target.Calories, target.ProteinG, target.CarbsG, target.FatG))
	if len(recs) == 0 {
		sb.WriteString("No suitable foods found.")
		return sb.String()
	}
	for i, r := range recs {
		sb.WriteString(fmt.Sprintf("%d. %s *%s*: %.0fg (%.0f kcal, P %.1fg)\n",
			i+1, r.Food.GlyphOrDefault(), escapeMarkdown(r.Food.Name), r.Grams, r.Nutrition.Calories, r.Nutrition.Protein))
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Vision Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
