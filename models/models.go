package models

// All returns every model, in dependency order, for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Sector{},
		&Institucion{},
		&CategoriaJuzgado{},
		&Juzgado{},
		&Caratula{},
		&User{},
		&UsuarioPerfil{},
		&Session{},
		&Nino{},
		&Parte{},
		&Caso{},
		&CasoNino{},
		&CasoParte{},
		&Oficio{},
		&OficioNino{},
		&OficioParte{},
		&MovimientoOficio{},
		&Respuesta{},
		&HistoryRecord{},
	}
}
