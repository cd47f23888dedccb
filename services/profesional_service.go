package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"oficios_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserInput is the data needed to create a staff user or a professional
type UserInput struct {
	Username        string
	FirstName       string
	LastName        string
	Email           string
	Password        string
	PasswordConfirm string
	Role            string // resolved from Sector when empty
	Sector          string // sector name, created on demand
	InstitucionID   string
	IsActive        *bool
}

// ProfesionalInput is the editable data of a professional
type ProfesionalInput struct {
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	InstitucionID   string `json:"institucion_id"`
	IsActive        *bool  `json:"is_active"`
}

func validateUserFields(db *gorm.DB, id string, username, email *string, firstName, lastName *string, ve *ValidationError) error {
	*username = strings.ToLower(strings.TrimSpace(*username))
	*email = strings.TrimSpace(*email)
	*firstName = UpperText(*firstName)
	*lastName = UpperText(*lastName)

	if *username == "" {
		ve.Add("username", "El usuario es obligatorio.")
	} else {
		var count int64
		q := db.Model(&models.User{}).Where("username = ?", *username)
		if id != "" {
			q = q.Where("id <> ?", id)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			ve.Add("username", "El nombre de usuario ya está en uso.")
		}
	}
	if *email != "" {
		if _, err := mail.ParseAddress(*email); err != nil {
			ve.Add("email", "El email no es válido.")
		}
	}
	return nil
}

func userSnapshot(u *models.User) map[string]interface{} {
	snap := map[string]interface{}{
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"is_active":  u.IsActive,
	}
	if u.Perfil != nil {
		snap["role"] = u.Perfil.Role
		snap["es_profesional"] = u.Perfil.EsProfesional
		snap["institucion_id"] = derefStr(u.Perfil.InstitucionID)
		snap["sector_id"] = derefStr(u.Perfil.SectorID)
	}
	return snap
}

// CreateUser creates a user with its profile. When no role is given it is
// derived once from the sector name.
func CreateUser(db *gorm.DB, actor Actor, in UserInput) (*models.User, error) {
	ve := &ValidationError{}
	if err := validateUserFields(db, "", &in.Username, &in.Email, &in.FirstName, &in.LastName, ve); err != nil {
		return nil, err
	}
	validatePassword(in.Password, in.PasswordConfirm, in.Username, true, ve)

	in.Sector = CollapseSpaces(in.Sector)
	if in.Role == "" {
		in.Role = RoleForSector(in.Sector)
	}
	if !models.IsValidRole(in.Role) {
		ve.Add("role", "Rol inválido.")
	}
	if err := checkAllExist(db, &models.Institucion{}, nonEmpty(in.InstitucionID)); err != nil {
		ve.Add("institucion", "La institución no existe.")
	}
	if in.Role == models.RoleProfesional && in.InstitucionID == "" {
		ve.Add("institucion", "El profesional debe pertenecer a una institución.")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	perfil := &models.UsuarioPerfil{
		Role:          in.Role,
		EsProfesional: in.Role == models.RoleProfesional,
		InstitucionID: strPtrOrNil(in.InstitucionID),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if in.Sector != "" {
			sector := models.Sector{Nombre: in.Sector}
			if err := tx.Where(models.Sector{Nombre: in.Sector}).FirstOrCreate(&sector).Error; err != nil {
				return fmt.Errorf("failed to resolve sector: %w", err)
			}
			perfil.SectorID = &sector.ID
		}
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		// IsActive=false would be skipped as a zero value on insert
		if !user.IsActive {
			if err := tx.Model(user).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate user: %w", err)
			}
		}
		perfil.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(perfil).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.Perfil = perfil
	RecordHistory(db, actor, models.HistoryActionCreate, models.HistoryResourceUser, user.ID, user.FullName(), nil, userSnapshot(user))
	RecordHistory(db, actor, models.HistoryActionCreate, models.HistoryResourcePerfil, perfil.ID, user.FullName(), nil, map[string]interface{}{
		"role":           perfil.Role,
		"es_profesional": perfil.EsProfesional,
		"institucion_id": derefStr(perfil.InstitucionID),
		"sector_id":      derefStr(perfil.SectorID),
	})
	return user, nil
}

// CreateProfesional creates a professional user bound to an institution
func CreateProfesional(db *gorm.DB, actor Actor, in ProfesionalInput) (*models.User, error) {
	return CreateUser(db, actor, UserInput{
		Username:        in.Username,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
		Role:            models.RoleProfesional,
		InstitucionID:   in.InstitucionID,
		IsActive:        in.IsActive,
	})
}

func loadProfesional(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.Joins("JOIN usuario_perfiles ON usuario_perfiles.user_id = users.id").
		Where("users.id = ? AND usuario_perfiles.es_profesional = ?", id, true).
		Preload("Perfil.Institucion").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load profesional: %w", err)
	}
	return &user, nil
}

// GetProfesional loads a professional with its institution
func GetProfesional(db *gorm.DB, id string) (*models.User, error) {
	return loadProfesional(db, id)
}

// UpdateProfesional edits a professional. An empty password keeps the current one.
func UpdateProfesional(db *gorm.DB, actor Actor, id string, in ProfesionalInput) (*models.User, error) {
	user, err := loadProfesional(db, id)
	if err != nil {
		return nil, err
	}

	ve := &ValidationError{}
	if err := validateUserFields(db, id, &in.Username, &in.Email, &in.FirstName, &in.LastName, ve); err != nil {
		return nil, err
	}
	validatePassword(in.Password, in.PasswordConfirm, in.Username, false, ve)
	if in.InstitucionID == "" {
		ve.Add("institucion", "El profesional debe pertenecer a una institución.")
	} else if err := checkAllExist(db, &models.Institucion{}, []string{in.InstitucionID}); err != nil {
		ve.Add("institucion", "La institución no existe.")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	old := userSnapshot(user)
	updates := map[string]interface{}{
		"username":   in.Username,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update profesional: %w", err)
		}
		if err := tx.Model(&models.UsuarioPerfil{}).Where("user_id = ?", id).Update("institucion_id", in.InstitucionID).Error; err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Password != "" || (in.IsActive != nil && !*in.IsActive) {
		if err := DeleteAllUserSessions(db, id); err != nil {
			return nil, err
		}
	}

	updated, err := loadProfesional(db, id)
	if err != nil {
		return nil, err
	}
	RecordHistory(db, actor, models.HistoryActionUpdate, models.HistoryResourceUser, id, updated.FullName(), old, userSnapshot(updated))
	return updated, nil
}

// DeleteProfesional removes a professional without recorded replies
func DeleteProfesional(db *gorm.DB, actor Actor, id string) error {
	user, err := loadProfesional(db, id)
	if err != nil {
		return err
	}
	count, err := countWhere(db, &models.Respuesta{}, "profesional_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count, What: "respuesta(s)"}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UsuarioPerfil{}).Error; err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete profesional: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	RecordHistory(db, actor, models.HistoryActionDelete, models.HistoryResourceUser, id, user.FullName(), userSnapshot(user), nil)
	return nil
}

// ListProfesionales returns professionals ordered by last name
func ListProfesionales(db *gorm.DB, busqueda, institucionID string, page, pageSize int) ([]models.User, int64, error) {
	query := db.Model(&models.User{}).
		Joins("JOIN usuario_perfiles ON usuario_perfiles.user_id = users.id").
		Where("usuario_perfiles.es_profesional = ?", true)
	if busqueda != "" {
		p := likePattern(CollapseSpaces(busqueda))
		query = query.Where(db.Where("users.last_name LIKE ?", p).
			Or("users.first_name LIKE ?", p).
			Or("users.username LIKE ?", p))
	}
	if institucionID != "" {
		query = query.Where("usuario_perfiles.institucion_id = ?", institucionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count profesionales: %w", err)
	}

	var list []models.User
	err := query.Preload("Perfil.Institucion").
		Order("users.last_name ASC, users.first_name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profesionales: %w", err)
	}
	return list, total, nil
}
