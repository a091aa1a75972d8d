package Notifications

import (
	"context"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"Osprey/Models"
)

// FCMClient pushes notifications to the recipient's registered devices.
// Built only when Firebase credentials are configured.
type FCMClient struct {
	client *messaging.Client
	db     *gorm.DB
}

// InitFirebase builds the messaging client from a service account key file.
func InitFirebase(credentialsFile string, db *gorm.DB) (*FCMClient, error) {
	ctx := context.Background()
	opt := option.WithCredentialsFile(credentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %v", err)
	}

	log.Println("Firebase initialized successfully")
	return &FCMClient{client: client, db: db}, nil
}

// Push sends the notification to every device token the user has
// registered. Per-device failures are logged and skipped.
func (f *FCMClient) Push(userID uint, n *Models.Notification) {
	var tokens []Models.DeviceToken
	if err := f.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		log.Printf("Failed to load device tokens for user %d: %v", userID, err)
		return
	}

	ctx := context.Background()
	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Value,
			Data: map[string]string{
				"notification_id": strconv.FormatUint(uint64(n.ID), 10),
				"type":            n.Type,
			},
			Notification: &messaging.Notification{
				Title: n.Title,
				Body:  n.Message,
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			},
		}
		if _, err := f.client.Send(ctx, message); err != nil {
			log.Printf("FCM send failed for user %d device %d: %v", userID, token.ID, err)
		}
	}
}
