package services

import (
	"errors"
	"fmt"
	"time"

	"oficios_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CasoNinoInput links a child to a caso
type CasoNinoInput struct {
	NinoID        string `json:"nino_id"`
	Observaciones string `json:"observaciones"`
}

// CasoParteInput links a party to a caso
type CasoParteInput struct {
	ParteID       string `json:"parte_id"`
	TipoRelacion  string `json:"tipo_relacion"`
	Observaciones string `json:"observaciones"`
}

// CasoInput is the editable data of a caso
type CasoInput struct {
	Tipo   string           `json:"tipo"`
	Expte  string           `json:"expte"`
	Estado string           `json:"estado"` // optional manual override on update
	Ninos  []CasoNinoInput  `json:"ninos"`
	Partes []CasoParteInput `json:"partes"`
}

// CasoFilter narrows ListCasos
type CasoFilter struct {
	Busqueda   string
	Tipo       string
	Estado     string
	NinoID     string
	FechaDesde time.Time
	FechaHasta time.Time
}

// lockForUpdate adds a row lock where the dialect supports it
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// RecomputeCasoEstado applies the oficio rollup to a caso: CERRADO once every
// linked oficio is enviado, back to EN_PROCESO when a CERRADO caso gets a
// pending oficio. Returns the resulting estado.
func RecomputeCasoEstado(tx *gorm.DB, casoID string) (string, error) {
	var caso models.Caso
	if err := lockForUpdate(tx).First(&caso, "id = ?", casoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load caso: %w", err)
	}

	var total, pendientes int64
	if err := tx.Model(&models.Oficio{}).Where("caso_id = ?", casoID).Count(&total).Error; err != nil {
		return "", fmt.Errorf("failed to count oficios: %w", err)
	}
	if err := tx.Model(&models.Oficio{}).Where("caso_id = ? AND estado <> ?", casoID, models.OficioEstadoEnviado).Count(&pendientes).Error; err != nil {
		return "", fmt.Errorf("failed to count pending oficios: %w", err)
	}

	nuevo := caso.Estado
	switch {
	case total > 0 && pendientes == 0:
		nuevo = models.CasoEstadoCerrado
	case caso.IsCerrado() && pendientes > 0:
		nuevo = models.CasoEstadoEnProceso
	}

	if nuevo != caso.Estado {
		if err := tx.Model(&caso).Update("estado", nuevo).Error; err != nil {
			return "", fmt.Errorf("failed to update caso estado: %w", err)
		}
	}
	return nuevo, nil
}

// promoteCaso moves an ABIERTO caso to EN_PROCESO once an oficio is attached
func promoteCaso(tx *gorm.DB, casoID string) error {
	return tx.Model(&models.Caso{}).
		Where("id = ? AND estado = ?", casoID, models.CasoEstadoAbierto).
		Update("estado", models.CasoEstadoEnProceso).Error
}

// attachOficioToCaso runs the promotion and rollup after an oficio joins a caso
func attachOficioToCaso(tx *gorm.DB, casoID string) error {
	if err := promoteCaso(tx, casoID); err != nil {
		return fmt.Errorf("failed to promote caso: %w", err)
	}
	_, err := RecomputeCasoEstado(tx, casoID)
	return err
}

func validateCasoInput(tx *gorm.DB, input *CasoInput, casoID string) error {
	ve := &ValidationError{}
	if input.Tipo == "" {
		input.Tipo = models.CasoTipoMPA
	}
	if !models.IsValidCasoTipo(input.Tipo) {
		ve.Add("tipo", "Tipo de caso inválido.")
	}
	if input.Estado != "" && !models.IsValidCasoEstado(input.Estado) {
		ve.Add("estado", "Estado de caso inválido.")
	}

	input.Expte = CollapseSpaces(input.Expte)
	if input.Expte != "" {
		var count int64
		q := tx.Model(&models.Caso{}).Where("expte = ?", input.Expte)
		if casoID != "" {
			q = q.Where("id <> ?", casoID)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check expte: %w", err)
		}
		if count > 0 {
			ve.Add("expte", "Ya existe un caso con ese expediente.")
		}
	}

	ninoIDs := make([]string, 0, len(input.Ninos))
	for _, n := range input.Ninos {
		ninoIDs = append(ninoIDs, n.NinoID)
	}
	if err := checkAllExist(tx, &models.Nino{}, ninoIDs); err != nil {
		ve.Add("ninos", err.Error())
	}
	parteIDs := make([]string, 0, len(input.Partes))
	for _, p := range input.Partes {
		parteIDs = append(parteIDs, p.ParteID)
	}
	if err := checkAllExist(tx, &models.Parte{}, parteIDs); err != nil {
		ve.Add("partes", err.Error())
	}

	return ve.OrNil()
}

// checkAllExist verifies every id (deduplicated) exists in model's table
func checkAllExist(tx *gorm.DB, model interface{}, ids []string) error {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	if len(unique) != len(ids) {
		return fmt.Errorf("Hay registros repetidos.")
	}
	var count int64
	if err := tx.Model(model).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return fmt.Errorf("Alguno de los registros seleccionados no existe.")
	}
	return nil
}

func replaceCasoPersonas(tx *gorm.DB, casoID string, input CasoInput) error {
	if err := tx.Where("caso_id = ?", casoID).Delete(&models.CasoNino{}).Error; err != nil {
		return fmt.Errorf("failed to clear caso ninos: %w", err)
	}
	if err := tx.Where("caso_id = ?", casoID).Delete(&models.CasoParte{}).Error; err != nil {
		return fmt.Errorf("failed to clear caso partes: %w", err)
	}
	for _, n := range input.Ninos {
		link := models.CasoNino{CasoID: casoID, NinoID: n.NinoID, Observaciones: SanitizeText(n.Observaciones)}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link nino: %w", err)
		}
	}
	for _, p := range input.Partes {
		link := models.CasoParte{CasoID: casoID, ParteID: p.ParteID, TipoRelacion: CollapseSpaces(p.TipoRelacion), Observaciones: SanitizeText(p.Observaciones)}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link parte: %w", err)
		}
	}
	return nil
}

// casoSnapshot is the history representation of a caso
func casoSnapshot(c *models.Caso, input CasoInput) map[string]interface{} {
	ninos := make([]string, 0, len(input.Ninos))
	for _, n := range input.Ninos {
		ninos = append(ninos, n.NinoID)
	}
	partes := make([]string, 0, len(input.Partes))
	for _, p := range input.Partes {
		partes = append(partes, p.ParteID)
	}
	return map[string]interface{}{
		"tipo":   c.Tipo,
		"expte":  derefStr(c.Expte),
		"estado": c.Estado,
		"ninos":  ninos,
		"partes": partes,
	}
}

func casoInputFromRecord(c *models.Caso) CasoInput {
	input := CasoInput{Tipo: c.Tipo, Expte: derefStr(c.Expte), Estado: c.Estado}
	for _, n := range c.Ninos {
		input.Ninos = append(input.Ninos, CasoNinoInput{NinoID: n.NinoID, Observaciones: n.Observaciones})
	}
	for _, p := range c.Partes {
		input.Partes = append(input.Partes, CasoParteInput{ParteID: p.ParteID, TipoRelacion: p.TipoRelacion, Observaciones: p.Observaciones})
	}
	return input
}

// CreateCaso creates a caso owned by the actor
func CreateCaso(db *gorm.DB, actor Actor, input CasoInput) (*models.Caso, error) {
	if err := validateCasoInput(db, &input, ""); err != nil {
		return nil, err
	}

	caso := &models.Caso{
		Tipo:      input.Tipo,
		Expte:     strPtrOrNil(input.Expte),
		Estado:    models.CasoEstadoAbierto,
		UsuarioID: actor.userIDPtr(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(caso).Error; err != nil {
			return fmt.Errorf("failed to create caso: %w", err)
		}
		return replaceCasoPersonas(tx, caso.ID, input)
	})
	if err != nil {
		return nil, err
	}

	RecordHistory(db, actor, models.HistoryActionCreate, models.HistoryResourceCaso, caso.ID, derefStr(caso.Expte), nil, casoSnapshot(caso, input))
	return caso, nil
}

// UpdateCaso replaces the editable data of a caso
func UpdateCaso(db *gorm.DB, actor Actor, id string, input CasoInput) (*models.Caso, error) {
	prior, err := loadCaso(db, id)
	if err != nil {
		return nil, err
	}
	if err := validateCasoInput(db, &input, id); err != nil {
		return nil, err
	}

	oldSnapshot := casoSnapshot(prior, casoInputFromRecord(prior))
	updated := *prior
	updated.Tipo = input.Tipo
	updated.Expte = strPtrOrNil(input.Expte)
	if input.Estado != "" {
		updated.Estado = input.Estado
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Caso{}).Where("id = ?", id).Updates(map[string]interface{}{
			"tipo":   updated.Tipo,
			"expte":  updated.Expte,
			"estado": updated.Estado,
		}).Error; err != nil {
			return fmt.Errorf("failed to update caso: %w", err)
		}
		if err := replaceCasoPersonas(tx, id, input); err != nil {
			return err
		}
		// A manual estado never contradicts the oficio rollup
		estado, err := RecomputeCasoEstado(tx, id)
		if err != nil {
			return err
		}
		updated.Estado = estado
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordHistory(db, actor, models.HistoryActionUpdate, models.HistoryResourceCaso, id, derefStr(updated.Expte), oldSnapshot, casoSnapshot(&updated, input))
	return loadCaso(db, id)
}

// DeleteCaso deletes a caso; its oficios are kept and detached
func DeleteCaso(db *gorm.DB, actor Actor, id string) error {
	prior, err := loadCaso(db, id)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Oficio{}).Where("caso_id = ?", id).Update("caso_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach oficios: %w", err)
		}
		if err := tx.Where("caso_id = ?", id).Delete(&models.CasoNino{}).Error; err != nil {
			return fmt.Errorf("failed to delete caso ninos: %w", err)
		}
		if err := tx.Where("caso_id = ?", id).Delete(&models.CasoParte{}).Error; err != nil {
			return fmt.Errorf("failed to delete caso partes: %w", err)
		}
		if err := tx.Delete(&models.Caso{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete caso: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	RecordHistory(db, actor, models.HistoryActionDelete, models.HistoryResourceCaso, id, derefStr(prior.Expte), casoSnapshot(prior, casoInputFromRecord(prior)), nil)
	return nil
}

func loadCaso(db *gorm.DB, id string) (*models.Caso, error) {
	var caso models.Caso
	err := db.Preload("Ninos.Nino").Preload("Partes.Parte").First(&caso, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load caso: %w", err)
	}
	return &caso, nil
}

// GetCaso loads a caso with its people and oficios, enforcing owner scoping
func GetCaso(db *gorm.DB, actor Actor, id string) (*models.Caso, error) {
	var caso models.Caso
	q := scopeCasos(db, actor).
		Preload("Usuario").
		Preload("Ninos.Nino").
		Preload("Partes.Parte").
		Preload("Oficios", func(db *gorm.DB) *gorm.DB { return db.Order("fecha_emision DESC") }).
		Preload("Oficios.Institucion").
		Preload("Oficios.Juzgado")
	if err := q.First(&caso, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load caso: %w", err)
	}
	return &caso, nil
}

func scopeCasos(db *gorm.DB, actor Actor) *gorm.DB {
	if actor.Can(PermCasosAll) {
		return db
	}
	return db.Where("casos.usuario_id = ?", actor.UserID)
}

// ListCasos returns a filtered page of casos, newest first
func ListCasos(db *gorm.DB, actor Actor, filter CasoFilter, page, pageSize int) ([]models.Caso, int64, error) {
	query := scopeCasos(db.Model(&models.Caso{}), actor)

	if filter.Busqueda != "" {
		raw := likePattern(CollapseSpaces(filter.Busqueda))
		folded := likePattern(SearchKey(filter.Busqueda))
		query = query.Where(
			db.Where("casos.expte LIKE ?", raw).
				Or("EXISTS (SELECT 1 FROM caso_ninos cn JOIN ninos n ON n.id = cn.nino_id WHERE cn.caso_id = casos.id AND n.busqueda LIKE ?)", folded).
				Or("EXISTS (SELECT 1 FROM caso_partes cp JOIN partes p ON p.id = cp.parte_id WHERE cp.caso_id = casos.id AND p.busqueda LIKE ?)", folded),
		)
	}
	if filter.Tipo != "" && models.IsValidCasoTipo(filter.Tipo) {
		query = query.Where("casos.tipo = ?", filter.Tipo)
	}
	if filter.Estado != "" && models.IsValidCasoEstado(filter.Estado) {
		query = query.Where("casos.estado = ?", filter.Estado)
	}
	if filter.NinoID != "" {
		query = query.Where("EXISTS (SELECT 1 FROM caso_ninos cn WHERE cn.caso_id = casos.id AND cn.nino_id = ?)", filter.NinoID)
	}
	if !filter.FechaDesde.IsZero() {
		query = query.Where("casos.created_at >= ?", filter.FechaDesde)
	}
	if !filter.FechaHasta.IsZero() {
		query = query.Where("casos.created_at < ?", filter.FechaHasta.Add(24*time.Hour))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count casos: %w", err)
	}

	var casos []models.Caso
	err := query.
		Preload("Ninos.Nino").
		Preload("Partes.Parte").
		Order("casos.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&casos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list casos: %w", err)
	}
	return casos, total, nil
}

// CasoMovimientos returns every movimiento of the caso's oficios, newest first
func CasoMovimientos(db *gorm.DB, casoID string) ([]models.MovimientoOficio, error) {
	var movs []models.MovimientoOficio
	err := db.Joins("JOIN oficios ON oficios.id = movimientos_oficio.oficio_id").
		Where("oficios.caso_id = ?", casoID).
		Preload("Oficio").
		Preload("Usuario").
		Preload("Institucion").
		Order("movimientos_oficio.created_at DESC").
		Find(&movs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load caso movimientos: %w", err)
	}
	return movs, nil
}

// LinkOficioToCaso attaches an oficio to a caso, re-running the rollup of
// both the previous and the new caso. Both casos must be visible to actor.
func LinkOficioToCaso(db *gorm.DB, actor Actor, oficioID, casoID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var oficio models.Oficio
		if err := tx.First(&oficio, "id = ?", oficioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load oficio: %w", err)
		}
		if err := checkCasoVisible(tx, actor, casoID); err != nil {
			return err
		}
		if oficio.CasoID != nil && *oficio.CasoID == casoID {
			return nil
		}

		previous := oficio.CasoID
		if previous != nil {
			if err := checkCasoVisible(tx, actor, *previous); err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Oficio{}).Where("id = ?", oficioID).Update("caso_id", casoID).Error; err != nil {
			return fmt.Errorf("failed to link oficio: %w", err)
		}
		if previous != nil {
			if _, err := RecomputeCasoEstado(tx, *previous); err != nil {
				return err
			}
		}
		return attachOficioToCaso(tx, casoID)
	})
}

// UnlinkOficioFromCaso detaches an oficio from casoID. An oficio held by
// another caso, or by none, is reported as ErrNotFound.
func UnlinkOficioFromCaso(db *gorm.DB, casoID, oficioID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var oficio models.Oficio
		if err := tx.First(&oficio, "id = ?", oficioID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load oficio: %w", err)
		}
		if oficio.CasoID == nil || *oficio.CasoID != casoID {
			return ErrNotFound
		}
		if err := tx.Model(&models.Oficio{}).Where("id = ?", oficioID).Update("caso_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink oficio: %w", err)
		}
		_, err := RecomputeCasoEstado(tx, casoID)
		return err
	})
}

// checkCasoVisible returns ErrNotFound unless casoID exists within the actor's scope
func checkCasoVisible(db *gorm.DB, actor Actor, casoID string) error {
	var count int64
	if err := scopeCasos(db.Model(&models.Caso{}), actor).Where("casos.id = ?", casoID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load caso: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
