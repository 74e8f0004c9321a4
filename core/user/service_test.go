package user_test

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

type discardMailer struct{}

func (discardMailer) SendMessages(...*core.EmailMessage) {}

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewUserRepository(db)
	return user.NewService(repo, discardMailer{}, core.Conf), repo
}

func Test_userSvc_Update_staffFlag(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	staff := testutil.CreateUser(t, repo, "Admin", "admin1", "admin@test.cd", "", true, false, true)

	// a partial update that omits is_staff must not touch it
	updated, err := svc.Update(ctx, staff.ID, user.UpdateUser{Name: "Renamed"})
	if err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Update() Name = %q; want %q", updated.Name, "Renamed")
	}
	if !updated.IsStaff {
		t.Error("Update() revoked staff status on a name-only update")
	}
	got, err := repo.GetUser(ctx, user.GetFilter{ID: staff.ID})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if !got.IsStaff {
		t.Error("stored user lost staff status on a name-only update")
	}
	if !got.Active() {
		t.Error("stored user lost active status on a name-only update")
	}

	// an explicit is_staff value still lands
	demote := false
	if updated, err = svc.Update(ctx, staff.ID, user.UpdateUser{IsStaff: &demote}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if updated.IsStaff {
		t.Error("Update() kept staff status despite is_staff=false")
	}
	promote := true
	if updated, err = svc.Update(ctx, staff.ID, user.UpdateUser{IsStaff: &promote}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if !updated.IsStaff {
		t.Error("Update() did not grant staff status despite is_staff=true")
	}
}

func Test_userSvc_SetLastLogin_preservesFlags(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	staff := testutil.CreateUser(t, repo, "Admin", "admin1", "admin@test.cd", "", true, true, true)

	usr, err := svc.SetLastLogin(ctx, staff)
	if err != nil {
		t.Fatalf("SetLastLogin(): %v", err)
	}
	if usr.LastLogin.IsZero() {
		t.Error("SetLastLogin() did not stamp LastLogin")
	}
	got, err := repo.GetUser(ctx, user.GetFilter{ID: staff.ID})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	if !got.IsStaff || !got.IsSuperuser {
		t.Errorf("SetLastLogin() changed flags; IsStaff = %v, IsSuperuser = %v", got.IsStaff, got.IsSuperuser)
	}
}
