package services

import (
	"errors"
	"fmt"
	"net/mail"

	"oficios_app_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstitucionInput is the editable data of an institution
type InstitucionInput struct {
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion"`
	Email     string `json:"email"`
	Telefono  string `json:"telefono"`
}

// JuzgadoInput is the editable data of a court
type JuzgadoInput struct {
	Nombre      string `json:"nombre"`
	Direccion   string `json:"direccion"`
	Telefono    string `json:"telefono"`
	CategoriaID string `json:"categoria_id"`
}

// CaratulaInput is the editable data of a catalogued case title
type CaratulaInput struct {
	Nombre string `json:"nombre"`
	Nota   string `json:"nota"`
}

// SectorInput is the editable data of an internal sector
type SectorInput struct {
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion"`
	Telefono  string `json:"telefono"`
}

func requireNombre(nombre string, ve *ValidationError) {
	if nombre == "" {
		ve.Add("nombre", "El nombre es obligatorio.")
	}
}

// checkNombreUnique flags a second row of model with the same nombre
func checkNombreUnique(db *gorm.DB, model interface{}, id, nombre string, ve *ValidationError) error {
	if nombre == "" {
		return nil
	}
	var count int64
	q := db.Model(model).Where("nombre = ?", nombre)
	if id != "" {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check nombre: %w", err)
	}
	if count > 0 {
		ve.Add("nombre", "Ya existe un registro con ese nombre.")
	}
	return nil
}

// loadReferencia fetches a reference row by id into dest
func loadReferencia(db *gorm.DB, dest interface{}, id string) error {
	if err := db.First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load record: %w", err)
	}
	return nil
}

// saveReferencia creates or updates a reference row after validation
func saveReferencia(db *gorm.DB, dest interface{}, create bool) error {
	var err error
	if create {
		err = db.Omit(clause.Associations).Create(dest).Error
	} else {
		err = db.Omit(clause.Associations).Save(dest).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// listReferencias returns rows of dest ordered by nombre, optionally filtered
func listReferencias(db *gorm.DB, dest interface{}, model interface{}, busqueda string, page, pageSize int, preloads ...string) (int64, error) {
	query := db.Model(model)
	if busqueda != "" {
		query = query.Where("nombre LIKE ?", likePattern(UpperText(busqueda)))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}
	for _, p := range preloads {
		query = query.Preload(p)
	}
	if err := query.Order("nombre ASC").Find(dest).Error; err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}
	return total, nil
}

func countWhere(db *gorm.DB, model interface{}, query string, args ...interface{}) (int64, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count references: %w", err)
	}
	return count, nil
}

// Instituciones

func (in *InstitucionInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	in.Nombre = UpperText(in.Nombre)
	in.Direccion = CollapseSpaces(in.Direccion)
	in.Telefono = CollapseSpaces(in.Telefono)
	in.Email = CollapseSpaces(in.Email)
	requireNombre(in.Nombre, ve)
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			ve.Add("email", "El email no es válido.")
		}
	}
	if err := checkNombreUnique(db, &models.Institucion{}, id, in.Nombre, ve); err != nil {
		return err
	}
	return ve.OrNil()
}

// CreateInstitucion stores a new institution
func CreateInstitucion(db *gorm.DB, in InstitucionInput) (*models.Institucion, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	inst := &models.Institucion{Nombre: in.Nombre, Direccion: in.Direccion, Email: in.Email, Telefono: in.Telefono}
	if err := saveReferencia(db, inst, true); err != nil {
		return nil, err
	}
	return inst, nil
}

// UpdateInstitucion replaces the data of an institution
func UpdateInstitucion(db *gorm.DB, id string, in InstitucionInput) (*models.Institucion, error) {
	var inst models.Institucion
	if err := loadReferencia(db, &inst, id); err != nil {
		return nil, err
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}
	inst.Nombre, inst.Direccion, inst.Email, inst.Telefono = in.Nombre, in.Direccion, in.Email, in.Telefono
	if err := saveReferencia(db, &inst, false); err != nil {
		return nil, err
	}
	return &inst, nil
}

// InstitucionUsage counts the oficios that reference an institution as holder,
// recipient or movement target
func InstitucionUsage(db *gorm.DB, id string) (int64, error) {
	return countWhere(db, &models.Oficio{},
		"oficios.institucion_id = ? OR EXISTS (SELECT 1 FROM oficio_instituciones oi WHERE oi.oficio_id = oficios.id AND oi.institucion_id = ?) OR EXISTS (SELECT 1 FROM movimientos_oficio m WHERE m.oficio_id = oficios.id AND m.institucion_id = ?)",
		id, id, id)
}

// DeleteInstitucion removes an institution not referenced by any oficio
func DeleteInstitucion(db *gorm.DB, id string) error {
	var inst models.Institucion
	if err := loadReferencia(db, &inst, id); err != nil {
		return err
	}
	count, err := InstitucionUsage(db, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count}
	}
	var respuestas int64
	if respuestas, err = countWhere(db, &models.Respuesta{}, "institucion_id = ?", id); err != nil {
		return err
	}
	if respuestas > 0 {
		return &InUseError{Count: respuestas, What: "respuesta(s)"}
	}
	if err := db.Delete(&models.Institucion{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete institucion: %w", err)
	}
	return nil
}

// ListInstituciones returns institutions ordered by nombre; pageSize 0 returns all
func ListInstituciones(db *gorm.DB, busqueda string, page, pageSize int) ([]models.Institucion, int64, error) {
	var list []models.Institucion
	total, err := listReferencias(db, &list, &models.Institucion{}, busqueda, page, pageSize)
	return list, total, err
}

// GetInstitucion loads one institution
func GetInstitucion(db *gorm.DB, id string) (*models.Institucion, error) {
	var inst models.Institucion
	if err := loadReferencia(db, &inst, id); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Juzgados

func (in *JuzgadoInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	in.Nombre = UpperText(in.Nombre)
	in.Direccion = CollapseSpaces(in.Direccion)
	in.Telefono = CollapseSpaces(in.Telefono)
	requireNombre(in.Nombre, ve)
	if err := checkAllExist(db, &models.CategoriaJuzgado{}, nonEmpty(in.CategoriaID)); err != nil {
		ve.Add("categoria", "La categoría no existe.")
	}
	if err := checkNombreUnique(db, &models.Juzgado{}, id, in.Nombre, ve); err != nil {
		return err
	}
	return ve.OrNil()
}

// CreateJuzgado stores a new court
func CreateJuzgado(db *gorm.DB, in JuzgadoInput) (*models.Juzgado, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	j := &models.Juzgado{Nombre: in.Nombre, Direccion: in.Direccion, Telefono: in.Telefono, CategoriaID: strPtrOrNil(in.CategoriaID)}
	if err := saveReferencia(db, j, true); err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateJuzgado replaces the data of a court
func UpdateJuzgado(db *gorm.DB, id string, in JuzgadoInput) (*models.Juzgado, error) {
	var j models.Juzgado
	if err := loadReferencia(db, &j, id); err != nil {
		return nil, err
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}
	j.Nombre, j.Direccion, j.Telefono, j.CategoriaID = in.Nombre, in.Direccion, in.Telefono, strPtrOrNil(in.CategoriaID)
	if err := saveReferencia(db, &j, false); err != nil {
		return nil, err
	}
	return &j, nil
}

// DeleteJuzgado removes a court not referenced by any oficio
func DeleteJuzgado(db *gorm.DB, id string) error {
	var j models.Juzgado
	if err := loadReferencia(db, &j, id); err != nil {
		return err
	}
	count, err := countWhere(db, &models.Oficio{}, "juzgado_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count}
	}
	if err := db.Delete(&models.Juzgado{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete juzgado: %w", err)
	}
	return nil
}

// ListJuzgados returns courts with their categoria, ordered by nombre
func ListJuzgados(db *gorm.DB, busqueda string, page, pageSize int) ([]models.Juzgado, int64, error) {
	var list []models.Juzgado
	total, err := listReferencias(db, &list, &models.Juzgado{}, busqueda, page, pageSize, "Categoria")
	return list, total, err
}

// Categorias

// CreateCategoria stores a new court category
func CreateCategoria(db *gorm.DB, nombre string) (*models.CategoriaJuzgado, error) {
	ve := &ValidationError{}
	nombre = UpperText(nombre)
	requireNombre(nombre, ve)
	if err := checkNombreUnique(db, &models.CategoriaJuzgado{}, "", nombre, ve); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	c := &models.CategoriaJuzgado{Nombre: nombre}
	if err := saveReferencia(db, c, true); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategoria renames a court category
func UpdateCategoria(db *gorm.DB, id, nombre string) (*models.CategoriaJuzgado, error) {
	var c models.CategoriaJuzgado
	if err := loadReferencia(db, &c, id); err != nil {
		return nil, err
	}
	ve := &ValidationError{}
	nombre = UpperText(nombre)
	requireNombre(nombre, ve)
	if err := checkNombreUnique(db, &models.CategoriaJuzgado{}, id, nombre, ve); err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	c.Nombre = nombre
	if err := saveReferencia(db, &c, false); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCategoria removes a category no juzgado uses
func DeleteCategoria(db *gorm.DB, id string) error {
	var c models.CategoriaJuzgado
	if err := loadReferencia(db, &c, id); err != nil {
		return err
	}
	count, err := countWhere(db, &models.Juzgado{}, "categoria_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count, What: "juzgado(s)"}
	}
	if err := db.Delete(&models.CategoriaJuzgado{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete categoria: %w", err)
	}
	return nil
}

// ListCategorias returns every court category
func ListCategorias(db *gorm.DB) ([]models.CategoriaJuzgado, error) {
	var list []models.CategoriaJuzgado
	_, err := listReferencias(db, &list, &models.CategoriaJuzgado{}, "", 0, 0)
	return list, err
}

// Caratulas

func (in *CaratulaInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	in.Nombre = UpperText(in.Nombre)
	in.Nota = SanitizeText(in.Nota)
	requireNombre(in.Nombre, ve)
	if err := checkNombreUnique(db, &models.Caratula{}, id, in.Nombre, ve); err != nil {
		return err
	}
	return ve.OrNil()
}

// CreateCaratula stores a new catalogued title
func CreateCaratula(db *gorm.DB, in CaratulaInput) (*models.Caratula, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	c := &models.Caratula{Nombre: in.Nombre, Nota: in.Nota}
	if err := saveReferencia(db, c, true); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCaratula replaces a catalogued title
func UpdateCaratula(db *gorm.DB, id string, in CaratulaInput) (*models.Caratula, error) {
	var c models.Caratula
	if err := loadReferencia(db, &c, id); err != nil {
		return nil, err
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}
	c.Nombre, c.Nota = in.Nombre, in.Nota
	if err := saveReferencia(db, &c, false); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCaratula removes a title no oficio uses
func DeleteCaratula(db *gorm.DB, id string) error {
	var c models.Caratula
	if err := loadReferencia(db, &c, id); err != nil {
		return err
	}
	count, err := countWhere(db, &models.Oficio{}, "caratula_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count}
	}
	if err := db.Delete(&models.Caratula{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete caratula: %w", err)
	}
	return nil
}

// ListCaratulas returns catalogued titles ordered by nombre
func ListCaratulas(db *gorm.DB, busqueda string, page, pageSize int) ([]models.Caratula, int64, error) {
	var list []models.Caratula
	total, err := listReferencias(db, &list, &models.Caratula{}, busqueda, page, pageSize)
	return list, total, err
}

// Sectores

func (in *SectorInput) validate(db *gorm.DB, id string) error {
	ve := &ValidationError{}
	in.Nombre = CollapseSpaces(in.Nombre)
	in.Direccion = CollapseSpaces(in.Direccion)
	in.Telefono = CollapseSpaces(in.Telefono)
	requireNombre(in.Nombre, ve)
	if err := checkNombreUnique(db, &models.Sector{}, id, in.Nombre, ve); err != nil {
		return err
	}
	return ve.OrNil()
}

// CreateSector stores a new internal sector
func CreateSector(db *gorm.DB, in SectorInput) (*models.Sector, error) {
	if err := in.validate(db, ""); err != nil {
		return nil, err
	}
	s := &models.Sector{Nombre: in.Nombre, Direccion: in.Direccion, Telefono: in.Telefono}
	if err := saveReferencia(db, s, true); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSector replaces the data of a sector
func UpdateSector(db *gorm.DB, id string, in SectorInput) (*models.Sector, error) {
	var s models.Sector
	if err := loadReferencia(db, &s, id); err != nil {
		return nil, err
	}
	if err := in.validate(db, id); err != nil {
		return nil, err
	}
	s.Nombre, s.Direccion, s.Telefono = in.Nombre, in.Direccion, in.Telefono
	if err := saveReferencia(db, &s, false); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSector removes a sector no user profile belongs to
func DeleteSector(db *gorm.DB, id string) error {
	var s models.Sector
	if err := loadReferencia(db, &s, id); err != nil {
		return err
	}
	count, err := countWhere(db, &models.UsuarioPerfil{}, "sector_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &InUseError{Count: count, What: "usuario(s)"}
	}
	if err := db.Delete(&models.Sector{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete sector: %w", err)
	}
	return nil
}

// ListSectores returns every sector
func ListSectores(db *gorm.DB) ([]models.Sector, error) {
	var list []models.Sector
	_, err := listReferencias(db, &list, &models.Sector{}, "", 0, 0)
	return list, err
}
