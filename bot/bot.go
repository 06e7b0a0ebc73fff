package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"attendance-scanner/internal/models"
	"attendance-scanner/internal/repository"
	"attendance-scanner/internal/services"
	"attendance-scanner/internal/session"
)

// AttendanceService is the manual entry surface the bot drives
type AttendanceService interface {
	Status(ctx context.Context, srn string) (*models.Participant, error)
	Mark(ctx context.Context, srn string, category models.Category) services.Outcome
}

// ScanController starts and stops the station's scan session
type ScanController interface {
	Begin(category models.Category) (session.Info, error)
	End() error
	Info() session.Info
}

var (
	bot          *tgbotapi.BotAPI
	targetChatID int64
	attendance   AttendanceService
	scanner      ScanController
)

// Init initializes the Telegram Bot
func Init(token string, authorizedChatIDStr string) error {
	var err error
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		return err
	}

	bot.Debug = false
	log.Printf("Authorized on account %s", bot.Self.UserName)

	if authorizedChatIDStr != "" {
		id, err := strconv.ParseInt(authorizedChatIDStr, 10, 64)
		if err == nil {
			targetChatID = id
		}
	}

	return nil
}

// SetAttendanceService sets the service used by /status and /mark
func SetAttendanceService(svc AttendanceService) {
	attendance = svc
}

// SetScanController sets the controller used by /scan and /stop
func SetScanController(c ScanController) {
	scanner = c
}

// StartPolling starts the update loop; it stops when ctx is canceled
func StartPolling(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := bot.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()

	go func() {
		for update := range updates {
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")
			msg.ParseMode = tgbotapi.ModeMarkdown
			msg.Text = handleCommand(ctx, update.Message.Chat.ID, update.Message.Command(), update.Message.CommandArguments())

			if _, err := bot.Send(msg); err != nil {
				log.Printf("Bot send error: %v", err)
			}
		}
	}()
}

func handleCommand(ctx context.Context, chatID int64, command, arguments string) string {
	switch command {
	case "start":
		return "📋 *Attendance*\n\n" +
			"*Commands:*\n" +
			"/status <SRN> - current attendance\n" +
			"/mark <SRN> <category> - mark attendance\n" +
			"/scan [category] - start scanning (no category = lookup only)\n" +
			"/stop - stop scanning\n" +
			"/session - scanner state\n" +
			"/categories - list categories"

	case "getid":
		return fmt.Sprintf("Chat ID: `%d`", chatID)

	case "categories":
		names := make([]string, 0, len(models.Categories))
		for _, c := range models.Categories {
			names = append(names, "`"+string(c)+"`")
		}
		return strings.Join(names, ", ")

	case "status":
		return handleStatus(ctx, strings.Fields(arguments))

	case "mark":
		if targetChatID != 0 && chatID != targetChatID {
			return "❌ Not authorized"
		}
		return handleMark(ctx, strings.Fields(arguments))

	case "scan", "stop", "session":
		if targetChatID != 0 && chatID != targetChatID {
			return "❌ Not authorized"
		}
		return handleScan(command, strings.Fields(arguments))

	default:
		return "Unknown command, use /start"
	}
}

func handleStatus(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "Usage: `/status <SRN>`"
	}
	if attendance == nil {
		return "❌ Attendance service not configured"
	}

	p, err := attendance.Status(ctx, args[0])
	if errors.Is(err, repository.ErrParticipantNotFound) {
		return "❌ " + services.MsgParticipantNotFound
	}
	if err != nil {
		log.Printf("Bot status error: %v", err)
		return "❌ " + services.MsgFetchFailed
	}
	return statusText(p)
}

func handleMark(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: `/mark <SRN> <category>`"
	}
	if attendance == nil {
		return "❌ Attendance service not configured"
	}

	category, err := models.ParseCategory(args[1])
	if err != nil {
		return "❌ Unknown category. Use /categories"
	}

	out := attendance.Mark(ctx, args[0], category)
	if out.Success() {
		return "✅ " + escape(out.Message)
	}
	return "❌ " + escape(out.Message)
}

func handleScan(command string, args []string) string {
	if scanner == nil {
		return "❌ Scanner not configured"
	}

	switch command {
	case "stop":
		if err := scanner.End(); err != nil {
			log.Printf("Bot stop error: %v", err)
		}
		return "⏹ Scanning stopped"

	case "session":
		return sessionText(scanner.Info())
	}

	if len(args) > 1 {
		return "Usage: `/scan [category]`"
	}
	var category models.Category
	if len(args) == 1 {
		c, err := models.ParseCategory(args[0])
		if err != nil {
			return "❌ Unknown category. Use /categories"
		}
		category = c
	}

	info, err := scanner.Begin(category)
	switch {
	case errors.Is(err, session.ErrCameraUnavailable):
		return "❌ " + session.MsgCameraUnavailable
	case err != nil:
		log.Printf("Bot scan error: %v", err)
		return "❌ " + escape(err.Error())
	}
	return sessionText(info)
}

func sessionText(info session.Info) string {
	if info.State == session.StateIdle || info.State == session.StateStopped {
		return "⏹ Scanner " + string(info.State)
	}
	if info.Category == "" {
		return "📷 Scanning, lookup only"
	}
	return "📷 Scanning for *" + info.Category.Label() + "*"
}

// escape quotes Markdown control characters in store or user supplied text
func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func statusText(p *models.Participant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 *%s*\n", escape(p.SRN))
	for _, c := range models.Categories {
		mark := "✖️"
		if p.Done(c) {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, c.Label())
	}
	return b.String()
}

// SendNotification sends message to admin
func SendNotification(message string) {
	if bot == nil || targetChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(targetChatID, message)
	if _, err := bot.Send(msg); err != nil {
		log.Printf("Failed to send: %v", err)
	}
}
