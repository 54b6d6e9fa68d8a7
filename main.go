package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chatterbox/engine/config"
	"github.com/chatterbox/engine/db"
	"github.com/chatterbox/engine/lib"
	"github.com/chatterbox/engine/models"
	"github.com/chatterbox/engine/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := lib.NewAppLogger(conf.LogDir, conf.Debug)

	gormDB, err := db.GetDB(conf, logger)
	if err != nil {
		logger.Fatalf("unable to open store: %v", err)
	}
	defaultsRepo, err := db.NewDefaultsRepo(conf.DefaultsFile)
	if err != nil {
		logger.Fatalf("unable to open defaults store: %v", err)
	}
	chatRepo := db.NewChatRepo(gormDB, logger)

	mediaService, err := services.NewMediaService(conf, logger)
	if err != nil {
		logger.Fatalf("unable to init image cache: %v", err)
	}
	chatService := services.NewChatService(chatRepo, mediaService, logger)
	userService := services.NewUserService(chatRepo, defaultsRepo, conf, logger)

	user, err := userService.CurrentUser()
	if err != nil {
		logger.Fatalf("unable to bootstrap current user: %v", err)
	}
	conversation, err := chatService.EnsureConversation(user)
	if err != nil {
		logger.Fatalf("unable to bootstrap conversation: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := chatService.ObserveConversation(ctx, conversation.ID)
	if err != nil {
		logger.Fatalf("unable to observe conversation: %v", err)
	}
	go func() {
		for conv := range updates {
			render(conv, user)
		}
	}()

	fmt.Printf("chatterbox, %s. Type a message, /image <path>, /strip <id> <index>, /delete <id>, /quit\n", user.Username)
	runLoop(chatService, mediaService, conversation, user)
}

func runLoop(chat services.ChatService, media services.MediaService, conversation models.Conversation, user models.User) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/image "):
			sendImage(chat, media, conversation, user, strings.TrimPrefix(line, "/image "))
		case strings.HasPrefix(line, "/delete "):
			if err := chat.DeleteMessage(strings.TrimPrefix(line, "/delete ")); err != nil {
				fmt.Printf("delete failed: %v\n", err)
			}
		case strings.HasPrefix(line, "/strip "):
			stripImage(chat, conversation, strings.TrimPrefix(line, "/strip "))
		default:
			text := line
			if err := chat.SaveMessage(models.Content{Text: &text}, conversation.ID, &user.ID); err != nil {
				fmt.Printf("send failed: %v\n", err)
			}
		}
	}
}

func sendImage(chat services.ChatService, media services.MediaService, conversation models.Conversation, user models.User, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("can't read %s: %v\n", path, err)
		return
	}
	// only the full-size location travels with the message; the thumbnail
	// stays on disk for cells that want a cheaper render
	fullURL, _, err := media.ProcessImage(raw)
	if err != nil {
		fmt.Printf("can't store image: %v\n", err)
		return
	}
	if err := chat.SaveMessage(models.Content{ImageURLs: []string{fullURL}}, conversation.ID, &user.ID); err != nil {
		fmt.Printf("send failed: %v\n", err)
	}
}

func stripImage(chat services.ChatService, conversation models.Conversation, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		fmt.Println("usage: /strip <message-id> <image-index>")
		return
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("usage: /strip <message-id> <image-index>")
		return
	}

	message, ok := findMessage(chat, conversation, fields[0])
	if !ok {
		fmt.Printf("no message %s\n", fields[0])
		return
	}
	if err := chat.UpdateMessage(message, models.UpdateMessageAction{DeleteImageIndex: index}); err != nil {
		fmt.Printf("update failed: %v\n", err)
	}
}

func findMessage(chat services.ChatService, conversation models.Conversation, id string) (models.Message, bool) {
	conversations, err := chat.GetConversations(conversation.ParticipantsID[0])
	if err != nil {
		return models.Message{}, false
	}
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			if msg.ID == id {
				return msg, true
			}
		}
	}
	return models.Message{}, false
}

func render(conversation models.Conversation, current models.User) {
	fmt.Println("----")
	// stored order is newest-first; print oldest-first
	for i := len(conversation.Messages) - 1; i >= 0; i-- {
		msg := conversation.Messages[i]
		sender := "?"
		if msg.SenderID != nil {
			sender = *msg.SenderID
			if sender == current.ID {
				sender = current.Username
			}
		}
		switch msg.Type {
		case models.MessageTypeImage:
			fmt.Printf("[%s] %s: %d image(s) %v\n", msg.ID, sender, len(msg.Content.ImageURLs), msg.Content.ImageURLs)
		default:
			text := ""
			if msg.Content.Text != nil {
				text = *msg.Content.Text
			}
			fmt.Printf("[%s] %s: %s\n", msg.ID, sender, text)
		}
	}
}
