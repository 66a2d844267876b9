package repository

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	sqlschema "entgo.io/ent/dialect/sql/schema"
	entschema "entgo.io/ent/schema"
	"entgo.io/ent/schema/field"

	dbschema "github.com/joseph-ayodele/syllabus-tracker/db/ent/schema"
)

// Table names, as annotated on the ent schemas.
const (
	coursesTable     = "courses"
	assignmentsTable = "assignments"
	settingsTable    = "settings"
)

// Tables holds the migration tables derived from db/ent/schema, parents first.
var Tables = mustBuildTables(
	dbschema.Course{},
	dbschema.Assignment{},
	dbschema.Setting{},
)

// validators maps table -> column -> string validators declared on the schema.
var validators = map[string]map[string][]func(string) error{}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context, c *Client, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := sqlschema.NewMigrate(c.Driver)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema migrated", "tables", len(Tables))
	return nil
}

// validate runs the schema's field validators over string values.
func validate(table string, values map[string]string) error {
	cols := validators[table]
	for name, v := range values {
		for _, fn := range cols[name] {
			if err := fn(v); err != nil {
				return fmt.Errorf("%s.%s: %w", table, name, err)
			}
		}
	}
	return nil
}

type tableDef struct {
	typeName string
	schema   ent.Interface
	table    *sqlschema.Table
}

func mustBuildTables(defs ...ent.Interface) []*sqlschema.Table {
	tables, err := buildTables(defs...)
	if err != nil {
		panic(err)
	}
	return tables
}

func buildTables(defs ...ent.Interface) ([]*sqlschema.Table, error) {
	byType := make(map[string]*tableDef, len(defs))
	ordered := make([]*tableDef, 0, len(defs))

	for _, s := range defs {
		td := &tableDef{
			typeName: reflect.TypeOf(s).Name(),
			schema:   s,
			table:    &sqlschema.Table{Name: tableName(s)},
		}
		validators[td.table.Name] = map[string][]func(string) error{}
		for _, f := range s.Fields() {
			d := f.Descriptor()
			if d.Err != nil {
				return nil, fmt.Errorf("%s.%s: %w", td.typeName, d.Name, d.Err)
			}
			col := &sqlschema.Column{
				Name:     columnName(d),
				Type:     d.Info.Type,
				Nullable: d.Optional,
				Unique:   d.Unique,
				Size:     int64(d.Size),
			}
			switch v := d.Default.(type) {
			case string, bool, int, int64, float64:
				col.Default = v
			}
			td.table.Columns = append(td.table.Columns, col)
			if col.Name == "id" {
				td.table.PrimaryKey = []*sqlschema.Column{col}
			}
			if d.Info.Type == field.TypeString {
				for _, v := range d.Validators {
					if fn, ok := v.(func(string) error); ok {
						validators[td.table.Name][col.Name] = append(validators[td.table.Name][col.Name], fn)
					}
				}
			}
		}
		if len(td.table.PrimaryKey) == 0 {
			return nil, fmt.Errorf("%s: missing id field", td.typeName)
		}
		byType[td.typeName] = td
		ordered = append(ordered, td)
	}

	for _, td := range ordered {
		for _, e := range td.schema.Edges() {
			d := e.Descriptor()
			if !d.Inverse || d.Field == "" {
				continue
			}
			ref, ok := byType[d.Type]
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown edge type %q", td.typeName, d.Name, d.Type)
			}
			col := column(td.table, d.Field)
			if col == nil {
				return nil, fmt.Errorf("%s.%s: edge field %q is not declared", td.typeName, d.Name, d.Field)
			}
			fk := &sqlschema.ForeignKey{
				Symbol:     fmt.Sprintf("%s_%s_%s", td.table.Name, ref.table.Name, d.Name),
				Columns:    []*sqlschema.Column{col},
				RefTable:   ref.table,
				RefColumns: ref.table.PrimaryKey,
				OnDelete:   sqlschema.NoAction,
			}
			if ant := ownerAnnotation(ref.schema, d.RefName); ant != nil && ant.OnDelete != "" {
				fk.OnDelete = sqlschema.ReferenceOption(ant.OnDelete)
			}
			td.table.ForeignKeys = append(td.table.ForeignKeys, fk)
		}

		for _, idx := range td.schema.Indexes() {
			d := idx.Descriptor()
			ix := &sqlschema.Index{
				Name:   td.table.Name + "_" + strings.Join(d.Fields, "_"),
				Unique: d.Unique,
			}
			for _, name := range d.Fields {
				col := column(td.table, name)
				if col == nil {
					return nil, fmt.Errorf("%s: index field %q is not declared", td.typeName, name)
				}
				ix.Columns = append(ix.Columns, col)
			}
			td.table.Indexes = append(td.table.Indexes, ix)
		}
	}

	tables := make([]*sqlschema.Table, len(ordered))
	for i, td := range ordered {
		tables[i] = td.table
	}
	return tables, nil
}

func tableName(s ent.Interface) string {
	if ant := sqlAnnotation(s.Annotations()); ant != nil && ant.Table != "" {
		return ant.Table
	}
	return strings.ToLower(reflect.TypeOf(s).Name()) + "s"
}

func columnName(d *field.Descriptor) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

func column(t *sqlschema.Table, name string) *sqlschema.Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ownerAnnotation returns the entsql annotation on the owning side of an edge.
func ownerAnnotation(owner ent.Interface, edgeName string) *entsql.Annotation {
	for _, e := range owner.Edges() {
		d := e.Descriptor()
		if d.Name == edgeName && !d.Inverse {
			return sqlAnnotation(d.Annotations)
		}
	}
	return nil
}

func sqlAnnotation(ants []entschema.Annotation) *entsql.Annotation {
	for _, a := range ants {
		switch v := a.(type) {
		case entsql.Annotation:
			return &v
		case *entsql.Annotation:
			return v
		}
	}
	return nil
}
