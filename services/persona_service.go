package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"oficios_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ninoSearchMinLength = 2
	ninoSearchLimit     = 10
)

// NinoInput is the editable data of a child record
type NinoInput struct {
	Nombre              string     `json:"nombre"`
	Apellido            string     `json:"apellido"`
	DNI                 string     `json:"dni"`
	FechaNac            *time.Time `json:"fecha_nac"`
	Edad                *int       `json:"edad"`
	DomicilioPrincipal  string     `json:"domicilio_principal"`
	DomicilioSecundario string     `json:"domicilio_secundario"`
}

// ParteInput is the editable data of a related party
type ParteInput struct {
	Nombre    string `json:"nombre"`
	Apellido  string `json:"apellido"`
	DNI       string `json:"dni"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
}

// PersonaFilter narrows the nino and parte listings
type PersonaFilter struct {
	Busqueda      string
	FechaNacDesde time.Time
	FechaNacHasta time.Time
}

// NinoSearchResult is one autocomplete suggestion
type NinoSearchResult struct {
	ID                 string `json:"id"`
	Nombres            string `json:"nombres"`
	Apellidos          string `json:"apellidos"`
	DocumentoIdentidad string `json:"documento_identidad"`
	FechaNacimiento    string `json:"fecha_nacimiento"`
}

// normalizePersona upper-cases the name pair and cleans the DNI
func normalizePersona(nombre, apellido, dni *string, ve *ValidationError) {
	*nombre = UpperText(*nombre)
	*apellido = UpperText(*apellido)
	if *nombre == "" {
		ve.Add("nombre", "El nombre es obligatorio.")
	}
	if *apellido == "" {
		ve.Add("apellido", "El apellido es obligatorio.")
	}

	clean, err := NormalizeDNI(*dni)
	if err != nil {
		ve.Add("dni", "El DNI debe contener solo números.")
		return
	}
	*dni = clean
}

// checkPersonaUnique rejects a second record with the same name pair or DNI.
// Names are stored upper-cased so plain equality is case-insensitive.
func checkPersonaUnique(db *gorm.DB, model interface{}, id, nombre, apellido, dni, label string, ve *ValidationError) error {
	if nombre != "" && apellido != "" {
		var count int64
		q := db.Model(model).Where("nombre = ? AND apellido = ?", nombre, apellido)
		if id != "" {
			q = q.Where("id <> ?", id)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check duplicates: %w", err)
		}
		if count > 0 {
			ve.Add("nombre", fmt.Sprintf("Ya existe %s con el mismo nombre y apellido.", label))
		}
	}

	if dni != "" {
		var count int64
		q := db.Model(model).Where("dni = ?", dni)
		if id != "" {
			q = q.Where("id <> ?", id)
		}
		if err := q.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check dni: %w", err)
		}
		if count > 0 {
			ve.Add("dni", fmt.Sprintf("Ya existe %s con ese DNI.", label))
		}
	}
	return nil
}

func (in *NinoInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	normalizePersona(&in.Nombre, &in.Apellido, &in.DNI, ve)
	in.DomicilioPrincipal = CollapseSpaces(in.DomicilioPrincipal)
	in.DomicilioSecundario = CollapseSpaces(in.DomicilioSecundario)
	if in.Edad != nil && (*in.Edad < 0 || *in.Edad > 120) {
		ve.Add("edad", "Edad inválida.")
	}
	if err := checkPersonaUnique(db, &models.Nino{}, id, in.Nombre, in.Apellido, in.DNI, "un niño", ve); err != nil {
		return err
	}
	return ve.OrNil()
}

func (in *ParteInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	normalizePersona(&in.Nombre, &in.Apellido, &in.DNI, ve)
	in.Telefono = CollapseSpaces(in.Telefono)
	in.Direccion = CollapseSpaces(in.Direccion)
	if err := checkPersonaUnique(db, &models.Parte{}, id, in.Nombre, in.Apellido, in.DNI, "una parte", ve); err != nil {
		return err
	}
	return ve.OrNil()
}

func ninoSnapshot(n *models.Nino) map[string]interface{} {
	snap := map[string]interface{}{
		"nombre":               n.Nombre,
		"apellido":             n.Apellido,
		"dni":                  derefStr(n.DNI),
		"domicilio_principal":  n.DomicilioPrincipal,
		"domicilio_secundario": n.DomicilioSecundario,
	}
	if n.FechaNac != nil {
		snap["fecha_nac"] = n.FechaNac.Format("2006-01-02")
	}
	if n.Edad != nil {
		snap["edad"] = *n.Edad
	}
	return snap
}

func parteSnapshot(p *models.Parte) map[string]interface{} {
	return map[string]interface{}{
		"nombre":    p.Nombre,
		"apellido":  p.Apellido,
		"dni":       derefStr(p.DNI),
		"telefono":  p.Telefono,
		"direccion": p.Direccion,
	}
}

func (in NinoInput) apply(n *models.Nino) {
	n.Nombre = in.Nombre
	n.Apellido = in.Apellido
	n.DNI = strPtrOrNil(in.DNI)
	n.FechaNac = in.FechaNac
	n.Edad = in.Edad
	n.DomicilioPrincipal = in.DomicilioPrincipal
	n.DomicilioSecundario = in.DomicilioSecundario
	n.Busqueda = SearchKey(in.Apellido, in.Nombre, in.DNI)
}

func (in ParteInput) apply(p *models.Parte) {
	p.Nombre = in.Nombre
	p.Apellido = in.Apellido
	p.DNI = strPtrOrNil(in.DNI)
	p.Telefono = in.Telefono
	p.Direccion = in.Direccion
	p.Busqueda = SearchKey(in.Apellido, in.Nombre, in.DNI)
}

// CreateNino stores a new child record
func CreateNino(db *gorm.DB, actor Actor, in NinoInput) (*models.Nino, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	nino := &models.Nino{}
	in.apply(nino)
	if err := db.Omit(clause.Associations).Create(nino).Error; err != nil {
		return nil, fmt.Errorf("failed to create nino: %w", err)
	}
	RecordHistory(db, actor, models.HistoryActionCreate, models.HistoryResourceNino, nino.ID, nino.NombreCompleto(), nil, ninoSnapshot(nino))
	return nino, nil
}

// UpdateNino replaces the data of a child record
func UpdateNino(db *gorm.DB, actor Actor, id string, in NinoInput) (*models.Nino, error) {
	var nino models.Nino
	if err := db.First(&nino, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load nino: %w", err)
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}

	old := ninoSnapshot(&nino)
	in.apply(&nino)
	if err := db.Omit(clause.Associations).Save(&nino).Error; err != nil {
		return nil, fmt.Errorf("failed to update nino: %w", err)
	}
	RecordHistory(db, actor, models.HistoryActionUpdate, models.HistoryResourceNino, nino.ID, nino.NombreCompleto(), old, ninoSnapshot(&nino))
	return &nino, nil
}

// DeleteNino removes a child record together with its caso and oficio links
func DeleteNino(db *gorm.DB, actor Actor, id string) error {
	var nino models.Nino
	if err := db.First(&nino, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load nino: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("nino_id = ?", id).Delete(&models.CasoNino{}).Error; err != nil {
			return fmt.Errorf("failed to delete caso links: %w", err)
		}
		if err := tx.Where("nino_id = ?", id).Delete(&models.OficioNino{}).Error; err != nil {
			return fmt.Errorf("failed to delete oficio links: %w", err)
		}
		if err := tx.Delete(&models.Nino{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete nino: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	RecordHistory(db, actor, models.HistoryActionDelete, models.HistoryResourceNino, id, nino.NombreCompleto(), ninoSnapshot(&nino), nil)
	return nil
}

// GetNino loads a child with the casos it appears in
func GetNino(db *gorm.DB, id string) (*models.Nino, error) {
	var nino models.Nino
	err := db.Preload("Casos.Caso").First(&nino, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load nino: %w", err)
	}
	return &nino, nil
}

// ListNinos returns a filtered page of children ordered by apellido
func ListNinos(db *gorm.DB, f PersonaFilter, page, pageSize int) ([]models.Nino, int64, error) {
	query := db.Model(&models.Nino{})
	if f.Busqueda != "" {
		query = query.Where("busqueda LIKE ?", likePattern(SearchKey(f.Busqueda)))
	}
	if !f.FechaNacDesde.IsZero() {
		query = query.Where("fecha_nac >= ?", f.FechaNacDesde)
	}
	if !f.FechaNacHasta.IsZero() {
		query = query.Where("fecha_nac < ?", f.FechaNacHasta.Add(24*time.Hour))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ninos: %w", err)
	}

	var ninos []models.Nino
	err := query.Order("apellido ASC, nombre ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&ninos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ninos: %w", err)
	}
	return ninos, total, nil
}

// SearchNinos powers the person autocomplete. Queries shorter than two
// characters return no results.
func SearchNinos(db *gorm.DB, q string) ([]NinoSearchResult, error) {
	q = strings.TrimSpace(q)
	results := []NinoSearchResult{}
	if len([]rune(q)) < ninoSearchMinLength {
		return results, nil
	}

	var ninos []models.Nino
	err := db.Where("busqueda LIKE ?", likePattern(SearchKey(q))).
		Order("apellido ASC, nombre ASC").
		Limit(ninoSearchLimit).
		Find(&ninos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search ninos: %w", err)
	}

	for _, n := range ninos {
		r := NinoSearchResult{
			ID:                 n.ID,
			Nombres:            n.Nombre,
			Apellidos:          n.Apellido,
			DocumentoIdentidad: derefStr(n.DNI),
		}
		if n.FechaNac != nil {
			r.FechaNacimiento = n.FechaNac.Format("02/01/2006")
		}
		results = append(results, r)
	}
	return results, nil
}

// CreateParte stores a new related party
func CreateParte(db *gorm.DB, actor Actor, in ParteInput) (*models.Parte, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	parte := &models.Parte{}
	in.apply(parte)
	if err := db.Omit(clause.Associations).Create(parte).Error; err != nil {
		return nil, fmt.Errorf("failed to create parte: %w", err)
	}
	RecordHistory(db, actor, models.HistoryActionCreate, models.HistoryResourceParte, parte.ID, parte.NombreCompleto(), nil, parteSnapshot(parte))
	return parte, nil
}

// UpdateParte replaces the data of a related party
func UpdateParte(db *gorm.DB, actor Actor, id string, in ParteInput) (*models.Parte, error) {
	var parte models.Parte
	if err := db.First(&parte, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load parte: %w", err)
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}

	old := parteSnapshot(&parte)
	in.apply(&parte)
	if err := db.Omit(clause.Associations).Save(&parte).Error; err != nil {
		return nil, fmt.Errorf("failed to update parte: %w", err)
	}
	RecordHistory(db, actor, models.HistoryActionUpdate, models.HistoryResourceParte, parte.ID, parte.NombreCompleto(), old, parteSnapshot(&parte))
	return &parte, nil
}

// DeleteParte removes a related party together with its caso and oficio links
func DeleteParte(db *gorm.DB, actor Actor, id string) error {
	var parte models.Parte
	if err := db.First(&parte, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load parte: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parte_id = ?", id).Delete(&models.CasoParte{}).Error; err != nil {
			return fmt.Errorf("failed to delete caso links: %w", err)
		}
		if err := tx.Where("parte_id = ?", id).Delete(&models.OficioParte{}).Error; err != nil {
			return fmt.Errorf("failed to delete oficio links: %w", err)
		}
		if err := tx.Delete(&models.Parte{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete parte: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	RecordHistory(db, actor, models.HistoryActionDelete, models.HistoryResourceParte, id, parte.NombreCompleto(), parteSnapshot(&parte), nil)
	return nil
}

// GetParte loads a related party with the casos it appears in
func GetParte(db *gorm.DB, id string) (*models.Parte, error) {
	var parte models.Parte
	err := db.Preload("Casos.Caso").First(&parte, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load parte: %w", err)
	}
	return &parte, nil
}

// ListPartes returns a filtered page of related parties ordered by apellido
func ListPartes(db *gorm.DB, f PersonaFilter, page, pageSize int) ([]models.Parte, int64, error) {
	query := db.Model(&models.Parte{})
	if f.Busqueda != "" {
		query = query.Where("busqueda LIKE ?", likePattern(SearchKey(f.Busqueda)))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count partes: %w", err)
	}

	var partes []models.Parte
	err := query.Order("apellido ASC, nombre ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&partes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list partes: %w", err)
	}
	return partes, total, nil
}
