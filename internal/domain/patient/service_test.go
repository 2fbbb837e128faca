package patient

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.MRN == p.MRN {
			return apperr.New(apperr.KindConflict, "mrn is already registered")
		}
	}
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "patient not found")
	}
	return p, nil
}

func (m *mockRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "patient not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if p, ok := m.patients[id]; ok {
		p.Active = active
	}
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if name, ok := params["name"]; ok {
			if !strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(name)) &&
				!strings.Contains(strings.ToLower(p.LastName), strings.ToLower(name)) {
				continue
			}
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func TestRegister_MintsMRNWhenAbsent(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &Patient{FirstName: "Ada", LastName: "Okafor"}

	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !strings.HasPrefix(p.MRN, "MRN-") || len(p.MRN) != 12 {
		t.Errorf("generated MRN = %q", p.MRN)
	}
	if !p.Active {
		t.Error("new patient should start active")
	}
}

func TestRegister_KeepsSuppliedMRN(t *testing.T) {
	svc := NewService(newMockRepo())
	p := &Patient{FirstName: "Ada", LastName: "Okafor", MRN: "MRN-EXTERNAL"}

	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.MRN != "MRN-EXTERNAL" {
		t.Errorf("MRN = %q, want supplied value", p.MRN)
	}
}

func TestRegister_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.Register(context.Background(), &Patient{FirstName: "Ada"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestNewMRN_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		mrn := NewMRN()
		if !strings.HasPrefix(mrn, "MRN-") || len(mrn) != 12 {
			t.Fatalf("bad MRN %q", mrn)
		}
		if seen[mrn] {
			t.Fatalf("duplicate MRN %q in 100 draws", mrn)
		}
		seen[mrn] = true
	}
}

func TestDeactivate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := &Patient{FirstName: "Ada", LastName: "Okafor"}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if repo.patients[p.ID].Active {
		t.Error("patient still active")
	}

	if err := svc.Deactivate(context.Background(), uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown patient: got %v, want not found", err)
	}
}
