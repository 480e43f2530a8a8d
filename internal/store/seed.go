package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed describes fixture users, projects and tasks loaded from YAML.
type Seed struct {
	Users    []SeedUser `yaml:"users"`
	Projects []string   `yaml:"projects"`
	Tasks    []SeedTask `yaml:"tasks"`
}

// SeedUser is a user entry in a seed file.
type SeedUser struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Role   string `yaml:"role"`
	Active *bool  `yaml:"active"`
}

// SeedTask is a task entry in a seed file. People are referenced by email.
type SeedTask struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	CreatedBy   string `yaml:"created_by"`
	AssignedTo  string `yaml:"assigned_to"`
	Project     string `yaml:"project"`
	Priority    string `yaml:"priority"`
	DueDate     string `yaml:"due_date"`
	Completed   bool   `yaml:"completed"`
}

// SeedResult counts what ApplySeed wrote.
type SeedResult struct {
	Users    int
	Projects int
	Tasks    int
}

// LoadSeed decodes a seed document.
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if err == io.EOF {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	for i, u := range seed.Users {
		if strings.TrimSpace(u.Email) == "" {
			return nil, fmt.Errorf("seed user %d: email is required", i)
		}
		if u.Role != "" && u.Role != RoleAdmin && u.Role != RoleUser {
			return nil, fmt.Errorf("seed user %s: invalid role %q", u.Email, u.Role)
		}
	}
	for i, t := range seed.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("seed task %d: title is required", i)
		}
		if t.Priority != "" && !ValidPriority(t.Priority) {
			return nil, fmt.Errorf("seed task %q: invalid priority %q", t.Title, t.Priority)
		}
	}
	return &seed, nil
}

// ApplySeed upserts the seed's users and projects and inserts its tasks.
// Tasks whose title already exists are skipped so seeding is repeatable.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) (SeedResult, error) {
	var res SeedResult

	for _, su := range seed.Users {
		active := true
		if su.Active != nil {
			active = *su.Active
		}
		name := su.Name
		if name == "" {
			name = strings.Split(su.Email, "@")[0]
		}
		u := &User{Name: name, Email: su.Email, Role: su.Role, Active: active}
		if err := s.UpsertUser(ctx, u); err != nil {
			return res, err
		}
		res.Users++
	}

	for _, name := range seed.Projects {
		if _, err := s.EnsureProject(ctx, name); err != nil {
			return res, err
		}
		res.Projects++
	}

	for _, st := range seed.Tasks {
		existing, err := s.ListTasks(ctx, TaskFilter{Title: st.Title, Limit: 50})
		if err != nil {
			return res, err
		}
		if hasExactTitle(existing, st.Title) {
			continue
		}

		creator, err := s.GetUserByEmail(ctx, st.CreatedBy)
		if err != nil {
			return res, err
		}
		if creator == nil {
			return res, fmt.Errorf("seed task %q: unknown creator %q", st.Title, st.CreatedBy)
		}

		t := &Task{
			Title:       st.Title,
			Description: st.Description,
			CreatedBy:   creator.ID,
			Priority:    st.Priority,
			DueDate:     st.DueDate,
			Completed:   st.Completed,
		}
		if st.Completed {
			t.CompletedAt = nowMillis()
		}
		if st.AssignedTo != "" {
			assignee, err := s.GetUserByEmail(ctx, st.AssignedTo)
			if err != nil {
				return res, err
			}
			if assignee == nil {
				return res, fmt.Errorf("seed task %q: unknown assignee %q", st.Title, st.AssignedTo)
			}
			t.AssignedTo = assignee.ID
		}
		if st.Project != "" {
			p, err := s.EnsureProject(ctx, st.Project)
			if err != nil {
				return res, err
			}
			t.ProjectID = p.ID
		}
		if err := s.CreateTask(ctx, t); err != nil {
			return res, err
		}
		res.Tasks++
	}

	s.logger.Info().
		Int("users", res.Users).
		Int("projects", res.Projects).
		Int("tasks", res.Tasks).
		Msg("seed applied")
	return res, nil
}

func hasExactTitle(tasks []*TaskView, title string) bool {
	for _, t := range tasks {
		if strings.EqualFold(t.Title, title) {
			return true
		}
	}
	return false
}
