package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/config"
	"github.com/mateusbentes/proof/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Create 10 users
	log.Println("🌱 Seeding 10 users...")

	for i := 1; i <= 10; i++ {
		username := fmt.Sprintf("user%d", i)

		// Check if exists
		var existing model.User
		if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
			continue
		}

		user := model.User{
			ID:          uuid.New(),
			Username:    username,
			DisplayName: fmt.Sprintf("User Number %d", i),
			Avatar:      fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username),
		}

		if err := db.Create(&user).Error; err != nil {
			log.Printf("❌ Failed to create user %s: %v", username, err)
		} else {
			log.Printf("✅ Created user: %s", username)
		}
	}

	// Create a demo group thread
	seedGroupThread(db)

	log.Println("🎉 Seeding completed!")
}

func seedGroupThread(db *gorm.DB) {
	// Find first 3 users
	var users []model.User
	if err := db.Order("username").Limit(3).Find(&users).Error; err != nil || len(users) < 3 {
		return
	}

	admin := users[0]
	members := users[1:]

	// Check if group exists
	var count int64
	db.Model(&model.Thread{}).Where("title = ?", "General Chat").Count(&count)
	if count > 0 {
		return
	}

	title := "General Chat"
	group := model.Thread{
		ID:        uuid.New(),
		Type:      model.ThreadTypeGroup,
		Title:     &title,
		CreatedBy: admin.ID,
	}

	if err := db.Create(&group).Error; err != nil {
		log.Printf("❌ Failed to create group thread: %v", err)
		return
	}

	// Add Admin
	db.Create(&model.ThreadParticipant{
		ThreadID: group.ID,
		UserID:   admin.ID,
		Role:     model.RoleAdmin,
	})

	// Add Members
	for _, m := range members {
		db.Create(&model.ThreadParticipant{
			ThreadID: group.ID,
			UserID:   m.ID,
			Role:     model.RoleMember,
		})
	}

	// Add a welcome message
	db.Create(&model.Message{
		ID:       uuid.New(),
		ThreadID: group.ID,
		SenderID: admin.ID,
		Content:  "Welcome everybody! 🚀",
	})

	log.Println("✅ Created demo group: 'General Chat' with 3 members")
}
