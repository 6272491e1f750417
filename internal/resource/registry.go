// Package resource collapses the institution's dozens of near-identical
// administration screens into one table-driven abstraction: each screen is a
// registry entry naming its upstream path, columns and field validators, and
// a single generic service/handler pair serves all of them.
package resource

import (
	"sort"

	"github.com/icap-edu/icap-portal-gateway/internal/form"
)

// Column describes one table column of a resource screen.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Definition is one administrable resource.
type Definition struct {
	// Name is the URL slug, Path the upstream collection endpoint.
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Path    string   `json:"-"`
	Columns []Column `json:"columns"`
	// ParentFilter names the optional secondary filter key, e.g. grupo_id
	// on the students screen.
	ParentFilter string `json:"parent_filter,omitempty"`
	Validators   map[string]form.Validator `json:"-"`
}

// Registry maps resource slugs to definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry from definitions.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		r.defs[def.Name] = def
	}
	return r
}

// Lookup returns the definition for a slug.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names lists registered slugs in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the institution's resource catalogue.
func Default() *Registry {
	return NewRegistry(
		Definition{
			Name: "estudiantes", Label: "Estudiantes", Path: "/estudiantes",
			Columns: []Column{{"cedula", "Cédula"}, {"nombre", "Nombre"}, {"email", "Correo"}, {"grupo", "Grupo"}},
			ParentFilter: "grupo_id",
			Validators: map[string]form.Validator{
				"cedula": form.Required("La cédula"),
				"nombre": form.Required("El nombre"),
				"email":  form.Email("El correo"),
			},
		},
		Definition{
			Name: "docentes", Label: "Docentes", Path: "/docentes",
			Columns: []Column{{"cedula", "Cédula"}, {"nombre", "Nombre"}, {"email", "Correo"}, {"especialidad", "Especialidad"}},
			Validators: map[string]form.Validator{
				"cedula": form.Required("La cédula"),
				"nombre": form.Required("El nombre"),
				"email":  form.Email("El correo"),
			},
		},
		Definition{
			Name: "grupos", Label: "Grupos", Path: "/grupos",
			Columns: []Column{{"nombre", "Nombre"}, {"nivel", "Nivel"}, {"periodo", "Período"}, {"docente", "Docente"}},
			ParentFilter: "nivel_id",
			Validators: map[string]form.Validator{
				"nombre":    form.Required("El nombre"),
				"nivel_id":  form.Required("El nivel"),
				"periodo_id": form.Required("El período"),
			},
		},
		Definition{
			Name: "horarios", Label: "Horarios", Path: "/horarios",
			Columns: []Column{{"grupo", "Grupo"}, {"dia", "Día"}, {"hora_inicio", "Inicio"}, {"hora_fin", "Fin"}, {"aula", "Aula"}},
			ParentFilter: "grupo_id",
			Validators: map[string]form.Validator{
				"grupo_id":    form.Required("El grupo"),
				"dia":         form.Required("El día"),
				"hora_inicio": form.Required("La hora de inicio"),
				"hora_fin":    form.Required("La hora de fin"),
			},
		},
		Definition{
			Name: "asistencias", Label: "Asistencias", Path: "/asistencias",
			Columns: []Column{{"estudiante", "Estudiante"}, {"grupo", "Grupo"}, {"fecha", "Fecha"}, {"estado", "Estado"}},
			ParentFilter: "grupo_id",
			Validators: map[string]form.Validator{
				"estudiante_id": form.Required("El estudiante"),
				"fecha":         form.Required("La fecha"),
				"estado":        form.Required("El estado"),
			},
		},
		Definition{
			Name: "pagos", Label: "Pagos", Path: "/pagos",
			Columns: []Column{{"estudiante", "Estudiante"}, {"concepto", "Concepto"}, {"monto", "Monto"}, {"fecha", "Fecha"}, {"estado", "Estado"}},
			ParentFilter: "estudiante_id",
			Validators: map[string]form.Validator{
				"estudiante_id": form.Required("El estudiante"),
				"concepto":      form.Required("El concepto"),
				"monto":         form.Numeric("El monto"),
			},
		},
		Definition{
			Name: "documentos", Label: "Documentos", Path: "/documentos",
			Columns: []Column{{"titulo", "Título"}, {"tipo", "Tipo"}, {"estudiante", "Estudiante"}, {"fecha", "Fecha"}},
			ParentFilter: "estudiante_id",
			Validators: map[string]form.Validator{
				"titulo": form.Required("El título"),
				"tipo":   form.Required("El tipo"),
			},
		},
		Definition{
			Name: "convenios", Label: "Convenios", Path: "/convenios",
			Columns: []Column{{"institucion", "Institución"}, {"tipo", "Tipo"}, {"fecha_inicio", "Inicio"}, {"fecha_fin", "Fin"}, {"estado", "Estado"}},
			Validators: map[string]form.Validator{
				"institucion":  form.Required("La institución"),
				"fecha_inicio": form.Required("La fecha de inicio"),
			},
		},
		Definition{
			Name: "usuarios", Label: "Usuarios", Path: "/usuarios",
			Columns: []Column{{"nombre", "Nombre"}, {"email", "Correo"}, {"rol", "Rol"}, {"activo", "Activo"}},
			Validators: map[string]form.Validator{
				"nombre": form.Required("El nombre"),
				"email":  form.Email("El correo"),
				"rol":    form.Required("El rol"),
			},
		},
		Definition{
			Name: "cursos", Label: "Cursos", Path: "/cursos",
			Columns: []Column{{"nombre", "Nombre"}, {"nivel", "Nivel"}, {"creditos", "Créditos"}},
			ParentFilter: "nivel_id",
			Validators: map[string]form.Validator{
				"nombre":   form.Required("El nombre"),
				"creditos": form.Numeric("Los créditos"),
			},
		},
		Definition{
			Name: "aulas", Label: "Aulas", Path: "/aulas",
			Columns: []Column{{"codigo", "Código"}, {"edificio", "Edificio"}, {"capacidad", "Capacidad"}},
			Validators: map[string]form.Validator{
				"codigo":    form.Required("El código"),
				"capacidad": form.Numeric("La capacidad"),
			},
		},
		Definition{
			Name: "matriculas", Label: "Matrículas", Path: "/matriculas",
			Columns: []Column{{"estudiante", "Estudiante"}, {"grupo", "Grupo"}, {"periodo", "Período"}, {"estado", "Estado"}},
			ParentFilter: "grupo_id",
			Validators: map[string]form.Validator{
				"estudiante_id": form.Required("El estudiante"),
				"grupo_id":      form.Required("El grupo"),
			},
		},
		Definition{
			Name: "niveles", Label: "Niveles", Path: "/niveles",
			Columns: []Column{{"nombre", "Nombre"}, {"orden", "Orden"}},
			Validators: map[string]form.Validator{
				"nombre": form.Required("El nombre"),
			},
		},
		Definition{
			Name: "periodos", Label: "Períodos académicos", Path: "/periodos",
			Columns: []Column{{"nombre", "Nombre"}, {"fecha_inicio", "Inicio"}, {"fecha_fin", "Fin"}, {"activo", "Activo"}},
			Validators: map[string]form.Validator{
				"nombre":       form.Required("El nombre"),
				"fecha_inicio": form.Required("La fecha de inicio"),
				"fecha_fin":    form.Required("La fecha de fin"),
			},
		},
		Definition{
			Name: "calificaciones", Label: "Calificaciones", Path: "/calificaciones",
			Columns: []Column{{"estudiante", "Estudiante"}, {"curso", "Curso"}, {"nota", "Nota"}, {"periodo", "Período"}},
			ParentFilter: "curso_id",
			Validators: map[string]form.Validator{
				"estudiante_id": form.Required("El estudiante"),
				"curso_id":      form.Required("El curso"),
				"nota":          form.Numeric("La nota"),
			},
		},
		Definition{
			Name: "autoridades", Label: "Autoridades", Path: "/autoridades",
			Columns: []Column{{"nombre", "Nombre"}, {"cargo", "Cargo"}, {"email", "Correo"}},
			Validators: map[string]form.Validator{
				"nombre": form.Required("El nombre"),
				"cargo":  form.Required("El cargo"),
				"email":  form.Email("El correo"),
			},
		},
		Definition{
			Name: "representantes", Label: "Representantes", Path: "/representantes",
			Columns: []Column{{"nombre", "Nombre"}, {"telefono", "Teléfono"}, {"estudiante", "Estudiante"}},
			ParentFilter: "estudiante_id",
			Validators: map[string]form.Validator{
				"nombre":   form.Required("El nombre"),
				"telefono": form.Required("El teléfono"),
			},
		},
		Definition{
			Name: "becas", Label: "Becas", Path: "/becas",
			Columns: []Column{{"estudiante", "Estudiante"}, {"tipo", "Tipo"}, {"porcentaje", "Porcentaje"}, {"estado", "Estado"}},
			ParentFilter: "estudiante_id",
			Validators: map[string]form.Validator{
				"estudiante_id": form.Required("El estudiante"),
				"tipo":          form.Required("El tipo"),
				"porcentaje":    form.Numeric("El porcentaje"),
			},
		},
	)
}
