package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"oficios_app_go/db"
	"oficios_app_go/middleware"
	"oficios_app_go/models"
	"oficios_app_go/services"
	"oficios_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

// oficioFilter reads the listing filters from the query string
func oficioFilter(c echo.Context) (services.OficioFilter, error) {
	desde, err := queryDate(c, "fecha_desde")
	if err != nil {
		return services.OficioFilter{}, err
	}
	hasta, err := queryDate(c, "fecha_hasta")
	if err != nil {
		return services.OficioFilter{}, err
	}
	estado := c.QueryParam("estado")
	if p := c.Param("estado"); p != "" {
		estado = p
	}
	return services.OficioFilter{
		Busqueda:      strings.TrimSpace(c.QueryParam("busqueda")),
		Estado:        estado,
		FechaDesde:    desde,
		FechaHasta:    hasta,
		InstitucionID: c.QueryParam("institucion"),
		JuzgadoID:     c.QueryParam("juzgado"),
		CasoID:        c.QueryParam("caso"),
		SoloVencidos:  c.QueryParam("vencidos") == "1" || c.QueryParam("vencidos") == "true",
		Now:           now(),
	}, nil
}

// ListOficiosHandler lists oficios; HTMX requests get the table partial
func ListOficiosHandler(c echo.Context) error {
	if p := c.Param("estado"); p != "" && !models.IsValidOficioEstado(p) {
		return echo.NewHTTPError(http.StatusNotFound, "Estado desconocido.")
	}
	filter, err := oficioFilter(c)
	if err != nil {
		return err
	}
	page, size := pagination(c)

	oficios, total, err := services.ListOficios(db.DB, filter, page, size)
	if err != nil {
		return serviceError(err)
	}

	if isHTMX(c) {
		return render(c, http.StatusOK, partials.OficioTable(partials.OficioTableView{
			Oficios:  oficios,
			Total:    total,
			Page:     page,
			PageSize: size,
			Query:    c.QueryParams(),
			Now:      filter.Now,
		}))
	}
	return c.JSON(http.StatusOK, paged(oficios, total, page, size))
}

// optionalFile returns the uploaded file of field, nil when none was sent
func optionalFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No se pudo leer el archivo adjunto.")
	}
	return file, nil
}

type oficioRequest struct {
	NroOficio      string                      `json:"nro_oficio"`
	Tipo           string                      `json:"tipo"`
	Denuncia       string                      `json:"denuncia"`
	Legajo         string                      `json:"legajo"`
	Expte          string                      `json:"expte"`
	CaratulaOficio string                      `json:"caratula_oficio"`
	FechaEmision   string                      `json:"fecha_emision"`
	PlazoValor     *int                        `json:"plazo_valor"`
	PlazoUnidad    string                      `json:"plazo_unidad"`
	Instituciones  []string                    `json:"instituciones"`
	JuzgadoID      string                      `json:"juzgado"`
	CaratulaID     string                      `json:"caratula"`
	CasoID         string                      `json:"caso"`
	Ninos          []services.OficioNinoInput  `json:"ninos"`
	Partes         []services.OficioParteInput `json:"partes"`
	QuitarArchivo  bool                        `json:"quitar_archivo"`
}

func parseFechaEmision(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := services.ParseDateTime(v)
	if err != nil {
		return time.Time{}, &services.ValidationError{Fields: map[string]string{"fecha_emision": "Fecha de emisión inválida."}}
	}
	return t, nil
}

func oficioInputJSON(c echo.Context) (services.OficioInput, error) {
	var req oficioRequest
	if err := bindJSON(c, &req); err != nil {
		return services.OficioInput{}, err
	}
	fecha, err := parseFechaEmision(req.FechaEmision)
	if err != nil {
		return services.OficioInput{}, err
	}
	return services.OficioInput{
		NroOficio:      req.NroOficio,
		Tipo:           req.Tipo,
		Denuncia:       req.Denuncia,
		Legajo:         req.Legajo,
		Expte:          req.Expte,
		CaratulaOficio: req.CaratulaOficio,
		FechaEmision:   fecha,
		PlazoValor:     req.PlazoValor,
		PlazoUnidad:    req.PlazoUnidad,
		InstitucionIDs: req.Instituciones,
		JuzgadoID:      req.JuzgadoID,
		CaratulaID:     req.CaratulaID,
		CasoID:         req.CasoID,
		Ninos:          req.Ninos,
		Partes:         req.Partes,
		RemoveArchivo:  req.QuitarArchivo,
	}, nil
}

// oficioInput reads an oficio from JSON or from a form. In forms ninos and
// partes come as repeated nino_id / parte_id fields with optional parallel
// parte_relacion values.
func oficioInput(c echo.Context) (services.OficioInput, error) {
	if isJSONRequest(c) {
		return oficioInputJSON(c)
	}
	in := services.OficioInput{
		NroOficio:      c.FormValue("nro_oficio"),
		Tipo:           c.FormValue("tipo"),
		Denuncia:       c.FormValue("denuncia"),
		Legajo:         c.FormValue("legajo"),
		Expte:          c.FormValue("expte"),
		CaratulaOficio: c.FormValue("caratula_oficio"),
		PlazoUnidad:    c.FormValue("plazo_unidad"),
		JuzgadoID:      c.FormValue("juzgado"),
		CaratulaID:     c.FormValue("caratula"),
		CasoID:         c.FormValue("caso"),
		RemoveArchivo:  formBool(c, "quitar_archivo"),
	}

	fecha, err := parseFechaEmision(c.FormValue("fecha_emision"))
	if err != nil {
		return in, err
	}
	in.FechaEmision = fecha
	plazo, err := formIntPtr(c, "plazo_valor")
	if err != nil {
		return in, err
	}
	in.PlazoValor = plazo

	form, err := c.FormParams()
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, "Formulario inválido.")
	}
	in.InstitucionIDs = form["instituciones"]
	for _, id := range form["nino_id"] {
		in.Ninos = append(in.Ninos, services.OficioNinoInput{NinoID: id})
	}
	relaciones := form["parte_relacion"]
	for i, id := range form["parte_id"] {
		p := services.OficioParteInput{ParteID: id}
		if i < len(relaciones) {
			p.TipoRelacion = relaciones[i]
		}
		in.Partes = append(in.Partes, p)
	}
	return in, nil
}

// CreateOficioHandler creates an oficio from a (multipart) form
func CreateOficioHandler(c echo.Context) error {
	in, err := oficioInput(c)
	if err != nil {
		return serviceError(err)
	}
	file, err := optionalFile(c, "archivo")
	if err != nil {
		return err
	}

	oficio, err := services.CreateOficio(c.Request().Context(), db.DB, services.Storage, middleware.GetActor(c), in, file)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusCreated, "Oficio creado con éxito.", oficio)
}

// GetOficioHandler returns an oficio with its relations and reachable estados
func GetOficioHandler(c echo.Context) error {
	oficio, err := services.GetOficio(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"oficio":           oficio,
		"vencido":          oficio.IsVencido(now()),
		"estados_posibles": models.NextOficioEstados(oficio.Estado),
	})
}

// UpdateOficioHandler edits an oficio
func UpdateOficioHandler(c echo.Context) error {
	in, err := oficioInput(c)
	if err != nil {
		return serviceError(err)
	}
	file, err := optionalFile(c, "archivo")
	if err != nil {
		return err
	}

	oficio, err := services.UpdateOficio(c.Request().Context(), db.DB, services.Storage, middleware.GetActor(c), c.Param("id"), in, file)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Oficio actualizado con éxito.", oficio)
}

// DeleteOficioHandler deletes an oficio with its movimientos, respuestas and files
func DeleteOficioHandler(c echo.Context) error {
	if err := services.DeleteOficio(c.Request().Context(), db.DB, services.Storage, c.Param("id")); err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Oficio eliminado.", nil)
}

type transitionRequest struct {
	Estado        string `json:"estado"`
	InstitucionID string `json:"institucion"`
	Detalle       string `json:"detalle"`
}

// EnviarOficioHandler changes the estado of an oficio. Assigning it notifies
// the institution by e-mail with a response link.
func EnviarOficioHandler(c echo.Context) error {
	var in services.TransitionInput
	if isJSONRequest(c) {
		var req transitionRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		in = services.TransitionInput{Estado: req.Estado, InstitucionID: req.InstitucionID, Detalle: req.Detalle}
	} else {
		in = services.TransitionInput{
			Estado:        c.FormValue("estado"),
			InstitucionID: c.FormValue("institucion"),
			Detalle:       c.FormValue("detalle"),
		}
	}
	file, err := optionalFile(c, "archivo")
	if err != nil {
		return err
	}

	id := c.Param("id")
	mov, err := services.TransitionOficio(c.Request().Context(), db.DB, services.Storage, middleware.GetActor(c), id, in, file)
	if err != nil {
		return serviceError(err)
	}

	if mov.EstadoNuevo == models.OficioEstadoAsignado {
		if _, err := services.NotifyAsignacion(db.DB, getConfig(c), id, mov.Detalle, now()); err != nil {
			log.Printf("[EMAIL] Failed to notify assignment of oficio %s: %v", id, err)
		}
	}
	return respond(c, http.StatusOK, "Estado actualizado a "+models.OficioEstadoLabel(mov.EstadoNuevo)+".", mov)
}

type validarRequest struct {
	Coord    *bool `json:"validado_coord"`
	Director *bool `json:"validado_director"`
}

// ValidarOficioHandler sets the sign-off flags the actor may set
func ValidarOficioHandler(c echo.Context) error {
	var in services.ValidarInput
	if isJSONRequest(c) {
		var req validarRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		in = services.ValidarInput{Coord: req.Coord, Director: req.Director}
	} else {
		if c.FormValue("validado_coord") != "" {
			v := formBool(c, "validado_coord")
			in.Coord = &v
		}
		if c.FormValue("validado_director") != "" {
			v := formBool(c, "validado_director")
			in.Director = &v
		}
	}

	oficio, err := services.ValidarOficio(db.DB, middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Validación registrada.", oficio)
}

// ListMovimientosHandler returns the movement log of an oficio
func ListMovimientosHandler(c echo.Context) error {
	movs, err := services.ListMovimientos(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, movs)
}

// streamAdjunto sends a stored PDF inline
func streamAdjunto(c echo.Context, archivo models.Adjunto) error {
	if !archivo.HasFile() {
		return echo.NewHTTPError(http.StatusNotFound, "El registro no tiene archivo adjunto.")
	}
	reader, err := services.Storage.Open(c.Request().Context(), archivo.Key)
	if err != nil {
		log.Printf("[STORAGE] Failed to read %s: %v", archivo.Key, err)
		return echo.NewHTTPError(http.StatusNotFound, "No se encontró el archivo.")
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", archivo.NombreOriginal))
	return c.Stream(http.StatusOK, services.PDFContentType, reader)
}

// DownloadOficioArchivoHandler serves the PDF attached to an oficio
func DownloadOficioArchivoHandler(c echo.Context) error {
	var oficio models.Oficio
	if err := db.DB.Select("id", "archivo_key", "archivo_nombre_original").First(&oficio, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "El registro solicitado no existe.")
	}
	return streamAdjunto(c, oficio.Archivo)
}

// ConstanciaPDFHandler prints the oficio record with its history as a PDF
func ConstanciaPDFHandler(c echo.Context) error {
	oficio, err := services.GetOficio(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	pdf, err := services.GenerateConstanciaPDF(c.Request().Context(), oficio, getConfig(c).ChromePath, now())
	if err != nil {
		log.Printf("[ERROR] Constancia for oficio %s: %v", oficio.ID, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "No se pudo generar la constancia.")
	}

	filename := fmt.Sprintf("constancia_oficio_%s.pdf", strings.NewReplacer("/", "-", " ", "_").Replace(oficio.NroOficio))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// ExportOficiosHandler downloads the filtered listing as XLSX
func ExportOficiosHandler(c echo.Context) error {
	filter, err := oficioFilter(c)
	if err != nil {
		return err
	}
	buf, err := services.ExportOficiosXLSX(db.DB, filter)
	if err != nil {
		return serviceError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", services.ExportFilename(now())))
	return c.Stream(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

// ResponseLinkHandler issues a professional response link for the current holder
func ResponseLinkHandler(c echo.Context) error {
	var oficio models.Oficio
	if err := db.DB.Select("id", "institucion_id", "estado").First(&oficio, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "El registro solicitado no existe.")
	}
	if oficio.InstitucionID == nil || oficio.Estado != models.OficioEstadoAsignado {
		return echo.NewHTTPError(http.StatusConflict, "El oficio debe estar asignado a una institución.")
	}

	cfg := getConfig(c)
	issued := now()
	token, err := services.IssueResponseLink(cfg.SessionSecret, oficio.ID, *oficio.InstitucionID, cfg.ResponseLinkTTL, issued)
	if err != nil {
		return serviceError(err)
	}
	return respond(c, http.StatusOK, "Enlace generado.", map[string]interface{}{
		"url":        strings.TrimRight(cfg.AppURL, "/") + "/responder/" + token,
		"expires_at": issued.Add(cfg.ResponseLinkTTL).Format(time.RFC3339),
	})
}
