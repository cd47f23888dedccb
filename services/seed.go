package services

import (
	"fmt"
	"log"
	"os"

	"oficios_app_go/models"

	"gorm.io/gorm"
)

// SeedAdminFromEnv creates the first admin user from environment variables.
// Only runs if ADMIN_USERNAME and ADMIN_PASSWORD are set and no admin exists yet.
func SeedAdminFromEnv(db *gorm.DB) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.UsuarioPerfil{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admins: %w", err)
	}
	if count > 0 {
		log.Println("[SEED] Admin user already exists, skipping seed")
		return nil
	}

	user, err := CreateUser(db, Actor{UserName: "sistema"}, UserInput{
		Username:        username,
		FirstName:       os.Getenv("ADMIN_FIRST_NAME"),
		LastName:        os.Getenv("ADMIN_LAST_NAME"),
		Email:           os.Getenv("ADMIN_EMAIL"),
		Password:        password,
		PasswordConfirm: password,
		Role:            models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	log.Printf("[SEED] Created admin user: %s", user.Username)
	return nil
}
