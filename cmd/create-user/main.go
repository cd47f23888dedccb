package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"oficios_app_go/config"
	"oficios_app_go/db"
	"oficios_app_go/models"
	"oficios_app_go/services"

	"golang.org/x/term"
)

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	value, _ := reader.ReadString('\n')
	return strings.TrimSpace(value)
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Crear usuario ===")
	fmt.Println()

	in := services.UserInput{
		Username:  prompt(reader, "Usuario: "),
		FirstName: prompt(reader, "Nombre: "),
		LastName:  prompt(reader, "Apellido: "),
		Email:     prompt(reader, "Email: "),
		Sector:    prompt(reader, "Sector: "),
	}
	fmt.Printf("Rol (%s) [vacío = según sector]: ", strings.Join(models.Roles, ", "))
	role, _ := reader.ReadString('\n')
	in.Role = strings.TrimSpace(role)

	// Get password securely
	fmt.Print("Contraseña: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Println()
	fmt.Print("Repetir contraseña: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Println()
	in.Password = string(password)
	in.PasswordConfirm = string(confirm)

	user, err := services.CreateUser(db.DB, services.Actor{UserName: "create-user"}, in)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			for field, msg := range ve.Fields {
				fmt.Printf("  %s: %s\n", field, msg)
			}
			os.Exit(1)
		}
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Usuario creado")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Usuario: %s\n", user.Username)
	fmt.Printf("  Rol: %s\n", user.Role())
	fmt.Println()
	fmt.Printf("Puede iniciar sesión en %s/login\n", strings.TrimRight(cfg.AppURL, "/"))
}
