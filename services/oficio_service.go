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
	"gorm.io/gorm/clause"
)

// OficioNinoInput links a child to an oficio
type OficioNinoInput struct {
	NinoID        string `json:"nino_id"`
	Observaciones string `json:"observaciones"`
}

// OficioParteInput links a party to an oficio
type OficioParteInput struct {
	ParteID       string `json:"parte_id"`
	TipoRelacion  string `json:"tipo_relacion"`
	Observaciones string `json:"observaciones"`
}

// OficioInput is the editable data of an oficio
type OficioInput struct {
	NroOficio      string
	Tipo           string
	Denuncia       string
	Legajo         string
	Expte          string
	CaratulaOficio string
	FechaEmision   time.Time
	PlazoValor     *int
	PlazoUnidad    string
	InstitucionIDs []string // destinatarias
	JuzgadoID      string
	CaratulaID     string
	CasoID         string
	Ninos          []OficioNinoInput
	Partes         []OficioParteInput
	RemoveArchivo  bool
}

// OficioFilter narrows ListOficios
type OficioFilter struct {
	Busqueda      string
	Estado        string
	FechaDesde    time.Time
	FechaHasta    time.Time
	InstitucionID string
	JuzgadoID     string
	CasoID        string
	SoloVencidos  bool
	Now           time.Time
}

// TransitionInput is the target of an enviar action
type TransitionInput struct {
	Estado        string
	InstitucionID string
	Detalle       string
}

// ValidarInput toggles the internal sign-off flags
type ValidarInput struct {
	Coord    *bool
	Director *bool
}

func (in *OficioInput) normalize() {
	in.NroOficio = CollapseSpaces(in.NroOficio)
	in.Denuncia = CollapseSpaces(in.Denuncia)
	in.Expte = CollapseSpaces(in.Expte)
	in.Legajo = UpperText(in.Legajo)
	in.CaratulaOficio = UpperText(in.CaratulaOficio)
	if in.Tipo == "" {
		in.Tipo = models.OficioTipoMPA
	}
}

// validateOficioInput normalizes input and returns the plazo in hours.
// A caso other than priorCasoID must be visible to actor.
func validateOficioInput(db *gorm.DB, actor Actor, in *OficioInput, priorCasoID string) (*int, error) {
	in.normalize()
	ve := &ValidationError{}

	if in.Tipo != models.OficioTipoMPA && in.Tipo != models.OficioTipoJudicial {
		ve.Add("tipo", "Tipo de oficio inválido.")
	}
	if in.FechaEmision.IsZero() {
		ve.Add("fecha_emision", "La fecha de emisión es obligatoria.")
	}

	plazo, err := PlazoToHoras(in.PlazoValor, in.PlazoUnidad)
	if err != nil {
		var pe *ValidationError
		if errors.As(err, &pe) {
			for k, v := range pe.Fields {
				ve.Add(k, v)
			}
		} else {
			return nil, err
		}
	}

	refs := []struct {
		field string
		model interface{}
		ids   []string
	}{
		{"instituciones", &models.Institucion{}, in.InstitucionIDs},
		{"juzgado", &models.Juzgado{}, nonEmpty(in.JuzgadoID)},
		{"caratula", &models.Caratula{}, nonEmpty(in.CaratulaID)},
		{"ninos", &models.Nino{}, ninoIDs(in.Ninos)},
		{"partes", &models.Parte{}, parteIDs(in.Partes)},
	}
	for _, ref := range refs {
		if err := checkAllExist(db, ref.model, ref.ids); err != nil {
			ve.Add(ref.field, err.Error())
		}
	}

	if in.CasoID != "" && in.CasoID != priorCasoID {
		if err := checkCasoVisible(db, actor, in.CasoID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			ve.Add("caso", "El caso no existe.")
		}
	}

	return plazo, ve.OrNil()
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

func ninoIDs(in []OficioNinoInput) []string {
	ids := make([]string, 0, len(in))
	for _, n := range in {
		ids = append(ids, n.NinoID)
	}
	return ids
}

func parteIDs(in []OficioParteInput) []string {
	ids := make([]string, 0, len(in))
	for _, p := range in {
		ids = append(ids, p.ParteID)
	}
	return ids
}

func replaceOficioRelations(tx *gorm.DB, oficio *models.Oficio, in OficioInput) error {
	var insts []models.Institucion
	if len(in.InstitucionIDs) > 0 {
		if err := tx.Where("id IN ?", in.InstitucionIDs).Find(&insts).Error; err != nil {
			return fmt.Errorf("failed to load instituciones: %w", err)
		}
	}
	if err := tx.Model(oficio).Omit("Instituciones.*").Association("Instituciones").Replace(insts); err != nil {
		return fmt.Errorf("failed to set instituciones: %w", err)
	}

	if err := tx.Where("oficio_id = ?", oficio.ID).Delete(&models.OficioNino{}).Error; err != nil {
		return fmt.Errorf("failed to clear oficio ninos: %w", err)
	}
	if err := tx.Where("oficio_id = ?", oficio.ID).Delete(&models.OficioParte{}).Error; err != nil {
		return fmt.Errorf("failed to clear oficio partes: %w", err)
	}
	for _, n := range in.Ninos {
		link := models.OficioNino{OficioID: oficio.ID, NinoID: n.NinoID, Observaciones: SanitizeText(n.Observaciones)}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link nino: %w", err)
		}
	}
	for _, p := range in.Partes {
		link := models.OficioParte{OficioID: oficio.ID, ParteID: p.ParteID, TipoRelacion: CollapseSpaces(p.TipoRelacion), Observaciones: SanitizeText(p.Observaciones)}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link parte: %w", err)
		}
	}
	return nil
}

// CreateOficio stores a new oficio in estado cargado together with its
// initial movimiento. The optional PDF is stored before the insert and removed
// again if the transaction fails.
func CreateOficio(ctx context.Context, db *gorm.DB, storage StorageProvider, actor Actor, in OficioInput, file *multipart.FileHeader) (*models.Oficio, error) {
	plazo, err := validateOficioInput(db, actor, &in, "")
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	var archivo models.Adjunto
	if file != nil {
		archivo, err = storePDF(ctx, storage, file, GenerateOficioKey(id))
		if err != nil {
			return nil, err
		}
	}

	oficio := &models.Oficio{
		ID:               id,
		NroOficio:        in.NroOficio,
		Tipo:             in.Tipo,
		Denuncia:         in.Denuncia,
		Legajo:           in.Legajo,
		Expte:            in.Expte,
		CaratulaOficio:   in.CaratulaOficio,
		Estado:           models.OficioEstadoCargado,
		PlazoHoras:       plazo,
		FechaEmision:     in.FechaEmision,
		FechaVencimiento: ComputeVencimiento(in.FechaEmision, plazo),
		Archivo:          archivo,
		JuzgadoID:        strPtrOrNil(in.JuzgadoID),
		CaratulaID:       strPtrOrNil(in.CaratulaID),
		CasoID:           strPtrOrNil(in.CasoID),
		UsuarioID:        actor.userIDPtr(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(oficio).Error; err != nil {
			return fmt.Errorf("failed to create oficio: %w", err)
		}
		if err := replaceOficioRelations(tx, oficio, in); err != nil {
			return err
		}

		mov := models.MovimientoOficio{
			OficioID:    oficio.ID,
			EstadoNuevo: models.OficioEstadoCargado,
			Detalle:     "Oficio cargado",
			UsuarioID:   actor.userIDPtr(),
		}
		if err := tx.Create(&mov).Error; err != nil {
			return fmt.Errorf("failed to create initial movimiento: %w", err)
		}

		if oficio.CasoID != nil {
			return attachOficioToCaso(tx, *oficio.CasoID)
		}
		return nil
	})
	if err != nil {
		deleteStoredFile(ctx, storage, archivo.Key)
		return nil, err
	}

	return oficio, nil
}

// UpdateOficio applies an edit. The due date is recomputed only when the
// emission date or the plazo differ from the stored row.
func UpdateOficio(ctx context.Context, db *gorm.DB, storage StorageProvider, actor Actor, id string, in OficioInput, file *multipart.FileHeader) (*models.Oficio, error) {
	var prior models.Oficio
	if err := db.First(&prior, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load oficio: %w", err)
	}

	plazo, err := validateOficioInput(db, actor, &in, derefStr(prior.CasoID))
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"nro_oficio":      in.NroOficio,
		"tipo":            in.Tipo,
		"denuncia":        in.Denuncia,
		"legajo":          in.Legajo,
		"expte":           in.Expte,
		"caratula_oficio": in.CaratulaOficio,
		"fecha_emision":   in.FechaEmision,
		"plazo_horas":     plazo,
		"juzgado_id":      strPtrOrNil(in.JuzgadoID),
		"caratula_id":     strPtrOrNil(in.CaratulaID),
		"caso_id":         strPtrOrNil(in.CasoID),
	}
	if vencimientoChanged(prior.FechaEmision, prior.PlazoHoras, in.FechaEmision, plazo) {
		venc := ComputeVencimiento(in.FechaEmision, plazo)
		updates["fecha_vencimiento"] = venc
		// A new deadline deserves a new reminder
		updates["aviso_vencimiento_at"] = nil
	}

	var nuevo models.Adjunto
	replaceFile := file != nil || in.RemoveArchivo
	if file != nil {
		nuevo, err = storePDF(ctx, storage, file, GenerateOficioKey(id))
		if err != nil {
			return nil, err
		}
	}
	if replaceFile {
		updates["archivo_key"] = nuevo.Key
		updates["archivo_nombre_original"] = nuevo.NombreOriginal
		updates["archivo_size"] = nuevo.Size
	}

	newCaso := strPtrOrNil(in.CasoID)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Oficio{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update oficio: %w", err)
		}
		if err := replaceOficioRelations(tx, &prior, in); err != nil {
			return err
		}

		if derefStr(prior.CasoID) != derefStr(newCaso) {
			if prior.CasoID != nil {
				if _, err := RecomputeCasoEstado(tx, *prior.CasoID); err != nil {
					return err
				}
			}
			if newCaso != nil {
				return attachOficioToCaso(tx, *newCaso)
			}
		}
		return nil
	})
	if err != nil {
		deleteStoredFile(ctx, storage, nuevo.Key)
		return nil, err
	}

	if replaceFile {
		deleteStoredFile(ctx, storage, prior.Archivo.Key)
	}

	return GetOficio(db, id)
}

// DeleteOficio removes an oficio with its movimientos, respuestas and every
// stored attachment
func DeleteOficio(ctx context.Context, db *gorm.DB, storage StorageProvider, id string) error {
	var oficio models.Oficio
	if err := db.Preload("Movimientos").Preload("Respuestas").First(&oficio, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load oficio: %w", err)
	}

	keys := []string{oficio.Archivo.Key}
	for _, m := range oficio.Movimientos {
		keys = append(keys, m.Archivo.Key)
	}
	for _, r := range oficio.Respuestas {
		keys = append(keys, r.Archivo.Key)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		children := []interface{}{&models.MovimientoOficio{}, &models.Respuesta{}, &models.OficioNino{}, &models.OficioParte{}}
		for _, child := range children {
			if err := tx.Where("oficio_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("failed to delete oficio children: %w", err)
			}
		}
		if err := tx.Model(&oficio).Association("Instituciones").Clear(); err != nil {
			return fmt.Errorf("failed to clear instituciones: %w", err)
		}
		if err := tx.Delete(&models.Oficio{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete oficio: %w", err)
		}
		if oficio.CasoID != nil {
			if _, err := RecomputeCasoEstado(tx, *oficio.CasoID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		deleteStoredFile(ctx, storage, key)
	}
	return nil
}

// TransitionOficio moves an oficio to a new estado. The movimiento is written
// before the oficio row changes; both happen in one transaction together with
// the caso rollup.
func TransitionOficio(ctx context.Context, db *gorm.DB, storage StorageProvider, actor Actor, id string, in TransitionInput, file *multipart.FileHeader) (*models.MovimientoOficio, error) {
	if !models.IsValidOficioEstado(in.Estado) {
		return nil, fieldError("estado", "Estado inválido.")
	}
	if in.Estado == models.OficioEstadoAsignado && in.InstitucionID == "" {
		return nil, fieldError("institucion", "Debe indicar la institución a la que se asigna el oficio.")
	}
	if in.InstitucionID != "" {
		if err := checkAllExist(db, &models.Institucion{}, []string{in.InstitucionID}); err != nil {
			return nil, fieldError("institucion", "La institución no existe.")
		}
	}

	var current models.Oficio
	if err := db.First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load oficio: %w", err)
	}
	if err := checkTransition(current.Estado, in.Estado); err != nil {
		return nil, err
	}

	mov := &models.MovimientoOficio{
		ID:          uuid.New().String(),
		OficioID:    id,
		EstadoNuevo: in.Estado,
		Detalle:     SanitizeText(in.Detalle),
		UsuarioID:   actor.userIDPtr(),
	}
	if file != nil {
		archivo, err := storePDF(ctx, storage, file, GenerateMovimientoKey(id, mov.ID))
		if err != nil {
			return nil, err
		}
		mov.Archivo = archivo
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return applyTransition(tx, id, in.Estado, in.InstitucionID, mov)
	})
	if err != nil {
		deleteStoredFile(ctx, storage, mov.Archivo.Key)
		return nil, err
	}
	return mov, nil
}

func checkTransition(from, to string) error {
	if from == to {
		return ErrSameEstado
	}
	if !models.CanTransitionOficio(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// applyTransition re-reads the oficio under lock, writes mov and then updates
// the oficio and its caso. Must run inside a transaction.
func applyTransition(tx *gorm.DB, id, estado, institucionID string, mov *models.MovimientoOficio) error {
	var oficio models.Oficio
	if err := lockForUpdate(tx).First(&oficio, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load oficio: %w", err)
	}
	if err := checkTransition(oficio.Estado, estado); err != nil {
		return err
	}

	anterior := oficio.Estado
	mov.EstadoAnterior = &anterior
	mov.EstadoNuevo = estado
	if institucionID != "" {
		mov.InstitucionID = &institucionID
	} else {
		mov.InstitucionID = oficio.InstitucionID
	}
	if err := tx.Create(mov).Error; err != nil {
		return fmt.Errorf("failed to create movimiento: %w", err)
	}

	updates := map[string]interface{}{"estado": estado}
	if institucionID != "" {
		updates["institucion_id"] = institucionID
	}
	if estado == models.OficioEstadoEnviado && oficio.FechaEnvio == nil {
		updates["fecha_envio"] = time.Now()
	}
	if err := tx.Model(&models.Oficio{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update oficio estado: %w", err)
	}

	if oficio.CasoID != nil {
		if _, err := RecomputeCasoEstado(tx, *oficio.CasoID); err != nil {
			return err
		}
	}
	return nil
}

// ValidarOficio sets the coordination and director sign-off flags the actor is allowed to set
func ValidarOficio(db *gorm.DB, actor Actor, id string, in ValidarInput) (*models.Oficio, error) {
	updates := map[string]interface{}{}
	if in.Coord != nil {
		if !actor.Can(PermValidarCoord) {
			return nil, ErrPermissionDenied
		}
		updates["validado_coord"] = *in.Coord
	}
	if in.Director != nil {
		if !actor.Can(PermValidarDirector) {
			return nil, ErrPermissionDenied
		}
		updates["validado_director"] = *in.Director
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Oficio{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to validate oficio: %w", err)
		}
	}
	return GetOficio(db, id)
}

// GetOficio loads an oficio with every relation shown on its detail page
func GetOficio(db *gorm.DB, id string) (*models.Oficio, error) {
	var oficio models.Oficio
	err := db.
		Preload("Institucion").
		Preload("Juzgado.Categoria").
		Preload("Caratula").
		Preload("Caso").
		Preload("Usuario").
		Preload("Instituciones").
		Preload("Ninos.Nino").
		Preload("Partes.Parte").
		Preload("Movimientos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Movimientos.Usuario").
		Preload("Movimientos.Institucion").
		Preload("Respuestas", func(db *gorm.DB) *gorm.DB { return db.Order("fecha_hora DESC") }).
		Preload("Respuestas.Usuario").
		Preload("Respuestas.Profesional").
		Preload("Respuestas.Institucion").
		First(&oficio, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load oficio: %w", err)
	}
	return &oficio, nil
}

// filterOficios applies an OficioFilter to a query on the oficios table
func filterOficios(db *gorm.DB, f OficioFilter) *gorm.DB {
	query := db.Model(&models.Oficio{})

	if f.Busqueda != "" {
		p := likePattern(CollapseSpaces(f.Busqueda))
		query = query.Where(
			db.Where("oficios.denuncia LIKE ?", p).
				Or("oficios.legajo LIKE ?", likePattern(UpperText(f.Busqueda))).
				Or("oficios.nro_oficio LIKE ?", p).
				Or("EXISTS (SELECT 1 FROM instituciones i WHERE i.id = oficios.institucion_id AND i.nombre LIKE ?)", p).
				Or("EXISTS (SELECT 1 FROM juzgados j WHERE j.id = oficios.juzgado_id AND j.nombre LIKE ?)", p),
		)
	}
	if f.Estado != "" && models.IsValidOficioEstado(f.Estado) {
		query = query.Where("oficios.estado = ?", f.Estado)
	}
	if !f.FechaDesde.IsZero() {
		query = query.Where("oficios.fecha_emision >= ?", f.FechaDesde)
	}
	if !f.FechaHasta.IsZero() {
		query = query.Where("oficios.fecha_emision < ?", f.FechaHasta.Add(24*time.Hour))
	}
	if f.InstitucionID != "" {
		query = query.Where("oficios.institucion_id = ?", f.InstitucionID)
	}
	if f.JuzgadoID != "" {
		query = query.Where("oficios.juzgado_id = ?", f.JuzgadoID)
	}
	if f.CasoID != "" {
		query = query.Where("oficios.caso_id = ?", f.CasoID)
	}
	if f.SoloVencidos {
		now := f.Now
		if now.IsZero() {
			now = time.Now()
		}
		query = query.Where("oficios.fecha_vencimiento < ? AND oficios.estado <> ?", now, models.OficioEstadoEnviado)
	}
	return query
}

// ListOficios returns a filtered page of oficios, most recently issued first
func ListOficios(db *gorm.DB, f OficioFilter, page, pageSize int) ([]models.Oficio, int64, error) {
	query := filterOficios(db, f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count oficios: %w", err)
	}

	var oficios []models.Oficio
	err := query.
		Preload("Institucion").
		Preload("Juzgado").
		Preload("Caso").
		Order("oficios.fecha_emision DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&oficios).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list oficios: %w", err)
	}
	return oficios, total, nil
}
