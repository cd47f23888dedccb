package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"oficios_app_go/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
	// MaxFailedLogins locks the account for LockoutDuration once reached
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("Usuario o contraseña incorrectos")
	ErrAccountLocked      = errors.New("La cuenta está bloqueada temporalmente. Intente más tarde.")
	ErrAccountInactive    = errors.New("La cuenta está desactivada")
)

// dummyHash keeps failed lookups as slow as real password checks
var dummyHash string

func init() {
	hash, _ := HashPassword("dummy_password_for_timing_mitigation")
	dummyHash = hash
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// CheckCredentials looks up a user by username and verifies the password,
// applying the failed-attempt lockout. It does not check the user's role.
func CheckCredentials(db *gorm.DB, username, password string) (*models.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	var user models.User
	err := db.Preload("Perfil").Where("username = ?", username).First(&user).Error
	if err != nil {
		VerifyPassword(dummyHash, password)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.LockoutUntil != nil && time.Now().Before(*user.LockoutUntil) {
		VerifyPassword(dummyHash, password)
		return nil, ErrAccountLocked
	}

	if !VerifyPassword(user.Password, password) {
		updates := map[string]interface{}{"failed_login_attempts": user.FailedLoginAttempts + 1}
		if user.FailedLoginAttempts+1 >= MaxFailedLogins {
			updates["lockout_until"] = time.Now().Add(LockoutDuration)
			updates["failed_login_attempts"] = 0
			LogSecurityEvent("ACCOUNT_LOCKED", user.ID, "too many failed logins")
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			log.Printf("[WARNING] Failed to record failed login for %s: %v", user.ID, err)
		}
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockoutUntil != nil {
		db.Model(&user).Updates(map[string]interface{}{"failed_login_attempts": 0, "lockout_until": nil})
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	return &user, nil
}

// Authenticate validates staff credentials for the standard login.
// Professionals are rejected with ErrProfesionalLogin.
func Authenticate(db *gorm.DB, username, password string) (*models.User, error) {
	user, err := CheckCredentials(db, username, password)
	if err != nil {
		return nil, err
	}
	if user.IsProfesional() {
		LogSecurityEvent("PROFESIONAL_LOGIN_BLOCKED", user.ID, "")
		return nil, ErrProfesionalLogin
	}

	now := time.Now()
	if err := db.Model(user).Update("last_login", now).Error; err != nil {
		log.Printf("[WARNING] Failed to update last login for %s: %v", user.ID, err)
	}
	user.LastLogin = &now
	return user, nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateSession creates a new session for a user, resolving its role and permissions
func CreateSession(db *gorm.DB, user *models.User, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	role := user.Role()
	session := &models.Session{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Token:       token,
		ExpiresAt:   time.Now().Add(DefaultSessionDuration),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Role:        role,
		Permissions: int64(PermissionsForRole(role)),
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session

	err := db.Preload("User.Perfil").
		Where("token = ?", token).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired(time.Now()) {
		db.Delete(&session)
		return nil, fmt.Errorf("session expired")
	}

	return &session, nil
}

// SessionActor builds the acting user of a validated session
func SessionActor(s *models.Session) Actor {
	return Actor{
		UserID:      s.UserID,
		UserName:    s.User.FullName(),
		Role:        s.Role,
		Permissions: Permission(s.Permissions),
		IPAddress:   s.IPAddress,
	}
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired sessions", result.RowsAffected)
	}
	return nil
}

// DeleteAllUserSessions deletes all sessions for a specific user.
// Called when a password or role changes so permissions are resolved again.
func DeleteAllUserSessions(db *gorm.DB, userID string) error {
	result := db.Where("user_id = ?", userID).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Deleted %d sessions for user %s", result.RowsAffected, userID)
	}
	return nil
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, userID, details string) {
	log.Printf("[SECURITY] %s | User: %s | Details: %s", eventType, userID, details)
}

// ChangePassword replaces the password of a user after checking the current
// one. Every other session of the user is closed; keepToken survives.
func ChangePassword(db *gorm.DB, actor Actor, userID, current, password, confirm, keepToken string) error {
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	ve := &ValidationError{}
	if !VerifyPassword(user.Password, current) {
		ve.Add("current_password", "La contraseña actual no es correcta.")
	}
	validatePassword(password, confirm, user.Username, true, ve)
	if err := ve.OrNil(); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Model(&user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := db.Where("user_id = ? AND token <> ?", userID, keepToken).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to close sessions: %w", err)
	}

	LogSecurityEvent("PASSWORD_CHANGED", userID, "by "+actor.UserName)
	RecordHistory(db, actor, models.HistoryActionUpdate, models.HistoryResourceUser, user.ID, user.FullName(),
		map[string]interface{}{"password": "***"}, map[string]interface{}{"password": "*** (modificada)"})
	return nil
}
