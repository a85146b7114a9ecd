package devserver

import "fmt"

// DemoPassword is the password of every seeded account
const DemoPassword = "password123"

// SeedDemo creates one account per role and a little data to look at
func (s *Server) SeedDemo() error {
	accounts := []struct{ name, email, role string }{
		{"Ada Admin", "admin@daycare.local", "admin"},
		{"Bea Sitter", "babysitter@daycare.local", "babysitter"},
		{"Pat Parent", "parent@daycare.local", "parent"},
		{"Fin Ance", "finance@daycare.local", "finance"},
	}
	for _, a := range accounts {
		if _, err := s.users.Add(a.name, a.email, DemoPassword, a.role); err != nil {
			return fmt.Errorf("seed %s: %w", a.email, err)
		}
	}

	for _, c := range []Record{
		{"firstName": "Milo", "lastName": "Reyes", "age": 4, "status": "active"},
		{"firstName": "Noor", "lastName": "Haddad", "age": 3, "status": "active"},
	} {
		rec := s.data.Insert("admin/children", c)
		s.data.Insert("babysitter/children", rec)
	}

	s.data.Insert("admin/notifications", Record{"title": "Payment overdue", "message": "Two invoices are past due"})
	s.data.Insert("babysitter/notifications", Record{"title": "Schedule updated", "message": "Friday pickup moved to 16:00"})
	s.data.Insert("parent/notifications", Record{"title": "Welcome", "message": "Your account is ready"})
	s.data.Insert("admin/payments", Record{"amount": 320, "status": "overdue"})
	return nil
}
