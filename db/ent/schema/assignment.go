package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-tracker/constants"
	"github.com/joseph-ayodele/syllabus-tracker/db/ent/schema/utils"
)

type Assignment struct{ ent.Schema }

func (Assignment) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "assignments"},
	}
}

func (Assignment) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("course_id", uuid.UUID{}),
		field.String("title").NotEmpty(),
		field.Time("due_date"),
		field.String("type").
			Default(string(constants.Homework)).
			Validate(utils.EnumValidator(constants.AssignmentTypes()...)),
		field.Bool("is_completed").Default(false),
		// set once the assignment has been mirrored into a calendar
		field.String("calendar_event_id").Optional().Nillable(),
	}
}

func (Assignment) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY assignments -> ONE course (FK: assignments.course_id)
		edge.From("course", Course.Type).
			Ref("assignments").
			Field("course_id").
			Required().
			Unique(),
	}
}

func (Assignment) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("course_id"),
		index.Fields("due_date"),
	}
}
