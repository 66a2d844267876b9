package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
)

type Course struct{ ent.Schema }

func (Course) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "courses"},
	}
}

func (Course) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("name").NotEmpty(),
		field.String("code").Default(constants.MissingCourseCode),
		field.String("icon").Default(constants.DefaultCourseIcon),
		field.String("color").Default(constants.DefaultCourseColor),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (Course) Edges() []ent.Edge {
	return []ent.Edge{
		// ONE course -> MANY assignments; deleting the course deletes them.
		edge.To("assignments", Assignment.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}
