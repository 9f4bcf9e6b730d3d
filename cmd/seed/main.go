package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/domain"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

// Seeds roles, the permission grant table and a set of demo accounts.
// Safe to run repeatedly: existing rows are reused, not duplicated.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	grants := policy.DefaultGrants()

	// Permissions: union of every granted action.
	permsByName := map[string]*domain.Permission{}
	for _, actions := range grants {
		for action := range actions {
			name := string(action)
			if _, ok := permsByName[name]; ok {
				continue
			}
			p := &domain.Permission{Name: name}
			if err := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(p).Error; err != nil {
				log.Fatalf("seed permission %s: %v", name, err)
			}
			permsByName[name] = p
		}
	}

	for roleName, actions := range grants {
		role := &domain.Role{Name: roleName}
		if err := db.WithContext(ctx).Where("name = ?", roleName).FirstOrCreate(role).Error; err != nil {
			log.Fatalf("seed role %s: %v", roleName, err)
		}

		perms := make([]*domain.Permission, 0, len(actions))
		for action := range actions {
			perms = append(perms, permsByName[string(action)])
		}
		if err := db.WithContext(ctx).Model(role).Association("Permissions").Replace(perms); err != nil {
			log.Fatalf("grant permissions to %s: %v", roleName, err)
		}
		log.Printf("role %s: %d permissions", roleName, len(perms))
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	demo := []struct {
		email string
		name  string
		role  string
	}{
		{"admin@taskhub.local", "Admin", domain.RoleAdmin},
		{"owner@taskhub.local", "Team Owner", domain.RoleTeamOwner},
		{"manager@taskhub.local", "Project Manager", domain.RoleProjectManager},
		{"member@taskhub.local", "Member", domain.RoleMember},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	for _, d := range demo {
		if _, err := userRepo.GetByEmail(ctx, d.email); err == nil {
			continue
		}

		user := &domain.User{Email: d.email, Name: d.name, PasswordHash: string(hash)}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("seed user %s: %v", d.email, err)
		}

		role, err := roleRepo.GetByName(ctx, d.role)
		if err != nil {
			log.Fatalf("load role %s: %v", d.role, err)
		}
		if err := userRepo.AssignRole(ctx, user.ID, role); err != nil {
			log.Fatalf("assign %s to %s: %v", d.role, d.email, err)
		}
		log.Printf("user %s seeded with role %s", d.email, d.role)
	}

	log.Print("seeding complete")
}
