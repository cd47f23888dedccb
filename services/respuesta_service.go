package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"oficios_app_go/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RespuestaInput is the data of a reply to an oficio
type RespuestaInput struct {
	Texto         string
	InstitucionID string
	Devuelto      bool
	FechaHora     time.Time
}

// respuestaEstados are the estados in which an oficio accepts replies
var respuestaEstados = map[string]bool{
	models.OficioEstadoAsignado:   true,
	models.OficioEstadoRespondido: true,
	models.OficioEstadoDevuelto:   true,
}

// CreateRespuesta records a staff reply and moves the oficio to respondido or devuelto
func CreateRespuesta(ctx context.Context, db *gorm.DB, storage StorageProvider, actor Actor, oficioID string, in RespuestaInput, file *multipart.FileHeader) (*models.Respuesta, error) {
	return createRespuesta(ctx, db, storage, actor, oficioID, in, file, nil)
}

// CreateRespuestaProfesional records a reply submitted through a response link.
// The professional authenticates with their own credentials and must belong to
// the institution the link was issued for.
func CreateRespuestaProfesional(ctx context.Context, db *gorm.DB, storage StorageProvider, claims *ResponseClaims, username, password string, in RespuestaInput, file *multipart.FileHeader) (*models.Respuesta, error) {
	user, err := CheckCredentials(db, username, password)
	if err != nil {
		return nil, err
	}
	if !user.IsProfesional() || user.Perfil.InstitucionID == nil || *user.Perfil.InstitucionID != claims.InstitucionID {
		LogSecurityEvent("RESPONSE_LINK_DENIED", user.ID, "professional does not belong to link institution")
		return nil, ErrPermissionDenied
	}

	var oficio models.Oficio
	if err := db.Select("id", "institucion_id").First(&oficio, "id = ?", claims.OficioID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to load oficio: %w", err)
	}
	// The oficio was reassigned after the link was sent
	if derefStr(oficio.InstitucionID) != claims.InstitucionID {
		return nil, ErrInvalidLink
	}

	in.InstitucionID = claims.InstitucionID
	actor := ActorForUser(user)
	return createRespuesta(ctx, db, storage, actor, claims.OficioID, in, file, &user.ID)
}

func createRespuesta(ctx context.Context, db *gorm.DB, storage StorageProvider, actor Actor, oficioID string, in RespuestaInput, file *multipart.FileHeader, profesionalID *string) (*models.Respuesta, error) {
	in.Texto = SanitizeText(in.Texto)
	if in.Texto == "" && file == nil {
		return nil, fieldError("respuesta", "Debe ingresar una respuesta o adjuntar un archivo.")
	}
	if in.FechaHora.IsZero() {
		in.FechaHora = time.Now()
	}
	if in.InstitucionID != "" {
		if err := checkAllExist(db, &models.Institucion{}, []string{in.InstitucionID}); err != nil {
			return nil, fieldError("institucion", "La institución no existe.")
		}
	}

	resp := &models.Respuesta{
		ID:            uuid.New().String(),
		OficioID:      oficioID,
		ProfesionalID: profesionalID,
		InstitucionID: strPtrOrNil(in.InstitucionID),
		Texto:         in.Texto,
		Devuelto:      in.Devuelto,
		FechaHora:     in.FechaHora,
	}
	if profesionalID == nil {
		resp.UsuarioID = actor.userIDPtr()
	}

	if file != nil {
		archivo, err := storePDF(ctx, storage, file, GenerateRespuestaKey(oficioID, resp.ID))
		if err != nil {
			return nil, err
		}
		resp.Archivo = archivo
	}

	target := models.OficioEstadoRespondido
	if in.Devuelto {
		target = models.OficioEstadoDevuelto
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var oficio models.Oficio
		if err := lockForUpdate(tx).First(&oficio, "id = ?", oficioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load oficio: %w", err)
		}
		if !respuestaEstados[oficio.Estado] {
			return ErrInvalidTransition
		}
		if resp.InstitucionID == nil {
			resp.InstitucionID = oficio.InstitucionID
		}

		if err := tx.Create(resp).Error; err != nil {
			return fmt.Errorf("failed to create respuesta: %w", err)
		}

		if oficio.Estado == target {
			return nil
		}
		mov := &models.MovimientoOficio{
			Detalle:   "Respuesta registrada",
			UsuarioID: actor.userIDPtr(),
		}
		return applyTransition(tx, oficioID, target, "", mov)
	})
	if err != nil {
		deleteStoredFile(ctx, storage, resp.Archivo.Key)
		return nil, err
	}
	return resp, nil
}

// DeleteRespuesta removes a reply and its attachment. The oficio estado is left as is.
func DeleteRespuesta(ctx context.Context, db *gorm.DB, storage StorageProvider, id string) (*models.Respuesta, error) {
	var resp models.Respuesta
	if err := db.First(&resp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load respuesta: %w", err)
	}
	if err := db.Delete(&models.Respuesta{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete respuesta: %w", err)
	}
	deleteStoredFile(ctx, storage, resp.Archivo.Key)
	return &resp, nil
}

// ListRespuestas returns the replies of an oficio, newest first
func ListRespuestas(db *gorm.DB, oficioID string) ([]models.Respuesta, error) {
	var list []models.Respuesta
	err := db.Where("oficio_id = ?", oficioID).
		Preload("Usuario").
		Preload("Profesional").
		Preload("Institucion").
		Order("fecha_hora DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list respuestas: %w", err)
	}
	return list, nil
}

// ListMovimientos returns the movement log of an oficio, newest first
func ListMovimientos(db *gorm.DB, oficioID string) ([]models.MovimientoOficio, error) {
	var list []models.MovimientoOficio
	err := db.Where("oficio_id = ?", oficioID).
		Preload("Usuario").
		Preload("Institucion").
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list movimientos: %w", err)
	}
	return list, nil
}
