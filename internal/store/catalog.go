package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lherron/itsmig/internal/domain"
	"github.com/lherron/itsmig/internal/target"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Class returns a registered class by name.
func (s *Store) Class(ctx context.Context, name string) (*target.Class, error) {
	return lookupClass(ctx, s.db, name)
}

// RelationshipClass returns a registered relationship class by name.
func (s *Store) RelationshipClass(ctx context.Context, name string) (*target.RelationshipClass, error) {
	return lookupRelationshipClass(ctx, s.db, name)
}

// EnumCatalog returns every enumeration value ordered by list and display name.
func (s *Store) EnumCatalog(ctx context.Context) ([]target.EnumValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, name, display_name FROM enum_values
		ORDER BY list_name, display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enumeration catalog: %w", err)
	}
	defer rows.Close()

	var values []target.EnumValue
	for rows.Next() {
		var v target.EnumValue
		if err := rows.Scan(&v.List, &v.Name, &v.DisplayName); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func lookupClass(ctx context.Context, q queryer, name string) (*target.Class, error) {
	cls := &target.Class{Name: name}
	err := q.QueryRowContext(ctx, "SELECT id_prefix FROM classes WHERE name = ?", name).Scan(&cls.IDPrefix)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", target.ErrUnknownClass, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up class %s: %w", name, err)
	}
	return cls, nil
}

func lookupRelationshipClass(ctx context.Context, q queryer, name string) (*target.RelationshipClass, error) {
	rc := &target.RelationshipClass{Name: name}
	err := q.QueryRowContext(ctx, `
		SELECT source_class, target_class FROM relationship_classes WHERE name = ?
	`, name).Scan(&rc.SourceClass, &rc.TargetClass)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", target.ErrUnknownRelationship, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up relationship class %s: %w", name, err)
	}
	return rc, nil
}

// checkEnumFields rejects non-empty string values of enumeration-backed
// fields that are not display names of the field's list.
func checkEnumFields(ctx context.Context, q queryer, class string, fields target.Fields) error {
	rows, err := q.QueryContext(ctx, `
		SELECT field_name, list_name FROM class_enum_fields WHERE class_name = ?
	`, class)
	if err != nil {
		return fmt.Errorf("failed to query enumeration fields: %w", err)
	}
	lists := map[string]string{}
	for rows.Next() {
		var field, list string
		if err := rows.Scan(&field, &list); err != nil {
			rows.Close()
			return err
		}
		lists[field] = list
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for field, list := range lists {
		value, ok := fields[field].(string)
		if !ok || value == "" {
			continue
		}
		var n int
		err := q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM enum_values WHERE list_name = ? AND display_name = ?
		`, list, value).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to check enumeration %s: %w", list, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s.%s = %q (%s)", target.ErrInvalidEnum, class, field, value, list)
		}
	}
	return nil
}

// Catalog is the reference data loaded by `itsmigadm seed`.
type Catalog struct {
	Enumerations []EnumList `yaml:"enumerations"`
	Users        []User     `yaml:"users"`
}

// EnumList is one enumeration list of the catalog file.
type EnumList struct {
	Name   string      `yaml:"name"`
	Values []EnumEntry `yaml:"values"`
}

// EnumEntry is one value of an enumeration list. Name defaults to DisplayName.
type EnumEntry struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
}

// User is a target user account.
type User struct {
	UserName    string `yaml:"user_name"`
	Domain      string `yaml:"domain"`
	DisplayName string `yaml:"display_name"`
	Email       string `yaml:"email"`
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	EnumValues   int `json:"enum_values"`
	UsersCreated int `json:"users_created"`
	UsersSkipped int `json:"users_skipped"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Seed loads enumeration values and users in one transaction. Enumeration
// values are upserted; users whose identifier already exists are skipped.
func (s *Store) Seed(ctx context.Context, cat *Catalog) (*SeedResult, error) {
	result := &SeedResult{}
	err := s.withTx(ctx, func(w *writer) error {
		for _, list := range cat.Enumerations {
			if list.Name == "" {
				return fmt.Errorf("enumeration list without a name")
			}
			for _, v := range list.Values {
				name := v.Name
				if name == "" {
					name = v.DisplayName
				}
				if v.DisplayName == "" {
					return fmt.Errorf("enumeration %s: value %q has no display_name", list.Name, name)
				}
				_, err := w.tx.ExecContext(ctx, `
					INSERT INTO enum_values (list_name, name, display_name) VALUES (?, ?, ?)
					ON CONFLICT (list_name, name) DO UPDATE SET display_name = excluded.display_name
				`, list.Name, name, v.DisplayName)
				if err != nil {
					return fmt.Errorf("failed to seed %s/%s: %w", list.Name, name, err)
				}
				result.EnumValues++
			}
		}

		for _, u := range cat.Users {
			if u.DisplayName == "" {
				return fmt.Errorf("user %q has no display_name", u.UserName)
			}
			id := userID(u)
			if id != "" {
				var n int
				if err := w.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects WHERE id = ?", id).Scan(&n); err != nil {
					return err
				}
				if n > 0 {
					result.UsersSkipped++
					continue
				}
			}
			fields := target.Fields{
				domain.ColID:  id,
				"UserName":    u.UserName,
				"Domain":      u.Domain,
				"DisplayName": u.DisplayName,
			}
			if u.Email != "" {
				fields["Email"] = u.Email
			}
			if _, err := w.create(ctx, domain.ClassUser, fields); err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.DisplayName, err)
			}
			result.UsersCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func userID(u User) string {
	switch {
	case u.UserName == "":
		return ""
	case u.Domain == "":
		return u.UserName
	default:
		return u.Domain + `\` + u.UserName
	}
}
