package detection

import (
	"context"
	"strconv"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/domain/model"
)

// SubjectSource lists the subjects an event may be raised for.
type SubjectSource interface {
	Subjects(ctx context.Context) ([]string, error)
}

// SubjectsFunc adapts a function to SubjectSource.
type SubjectsFunc func(ctx context.Context) ([]string, error)

// Subjects calls f.
func (f SubjectsFunc) Subjects(ctx context.Context) ([]string, error) { return f(ctx) }

// Static always returns ids.
func Static(ids ...string) SubjectSource {
	return SubjectsFunc(func(context.Context) ([]string, error) { return ids, nil })
}

// TableSource looks up a dataset by name.
type TableSource interface {
	Table(name string) (*dataset.Table, bool)
}

// FromDataset picks subjects from the subject_id column of a loaded dataset.
// A missing dataset yields no subjects.
func FromDataset(tables TableSource, name string) SubjectSource {
	return SubjectsFunc(func(context.Context) ([]string, error) {
		t, ok := tables.Table(name)
		if !ok {
			return nil, nil
		}
		return t.Distinct(dataset.SubjectColumn)
	})
}

// UserLister lists user ids by role.
type UserLister interface {
	UserIDsByRole(ctx context.Context, role string) ([]int64, error)
}

// FromUsers picks among elderly users of the platform.
func FromUsers(users UserLister) SubjectSource {
	return SubjectsFunc(func(ctx context.Context) ([]string, error) {
		ids, err := users.UserIDsByRole(ctx, model.RoleElderly)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = strconv.FormatInt(id, 10)
		}
		return out, nil
	})
}
