package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/example/room-scheduler/internal/persistence"
)

// PasswordHasher turns a plain password into its stored form.
type PasswordHasher func(password string) (string, error)

// DirectoryService manages users and the sector and room catalog.
type DirectoryService struct {
	store    persistence.Store
	validate *validator.Validate
	hash     PasswordHasher
	now      func() time.Time
	logger   *slog.Logger
}

// NewDirectoryService constructs a DirectoryService. hash defaults to argon2id
// with DefaultArgon2idParams.
func NewDirectoryService(store persistence.Store, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		hash:     hash,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// Register creates a user and counts them in their sector.
func (s *DirectoryService) Register(ctx context.Context, input RegisterUserInput) (user persistence.User, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("directory store not configured")
		return
	}

	input.Email = normalizeEmail(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	input.Sector = strings.TrimSpace(input.Sector)

	logger := s.loggerWith(ctx, "Register", "email", input.Email, "role", input.Role)
	defer func() {
		logOutcome(ctx, logger, err, "user registration failed", "user registered")
	}()

	if err = s.validateStruct(input); err != nil {
		return
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	candidate := persistence.User{
		Email:        input.Email,
		PasswordHash: hashed,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		BirthDate:    input.BirthDate,
		Role:         persistence.Role(input.Role),
		CreatedAt:    s.now(),
	}
	if input.Sector != "" {
		candidate.Sector = stringPtr(input.Sector)
	}
	if candidate.Role == persistence.RoleManager {
		candidate.RoleStartDate = input.RoleStartDate
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		if candidate.Sector != nil {
			if _, err := tx.FindSector(ctx, *candidate.Sector); err != nil {
				if errors.Is(err, persistence.ErrNotFound) {
					return fieldError("sector", ErrInvalidField)
				}
				return err
			}
		}
		if err := tx.InsertUser(ctx, candidate); err != nil {
			return mapStoreError(err, nil)
		}
		if candidate.Sector != nil {
			if err := tx.IncrementSectorMembers(ctx, *candidate.Sector); err != nil {
				return mapStoreError(err, fieldError("sector", ErrInvalidField))
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	user = candidate
	user.PasswordHash = ""
	return
}

func (s *DirectoryService) validateStruct(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	v := &ValidationError{}
	for _, fe := range fieldErrs {
		cause := ErrInvalidField
		if strings.HasPrefix(fe.Tag(), "required") {
			cause = ErrMissingField
		}
		v.add(lowerFirst(fe.Field()), cause)
	}
	return v.orNil()
}

// GetUser returns the profile of a registered user without the password hash.
func (s *DirectoryService) GetUser(ctx context.Context, email string) (user persistence.User, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("directory store not configured")
		return
	}
	email = normalizeEmail(email)
	if email == "" {
		err = fieldError("email", ErrMissingField)
		return
	}
	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		found, err := tx.FindUser(ctx, email)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		user = found
		return nil
	})
	if err != nil {
		user = persistence.User{}
		return
	}
	user.PasswordHash = ""
	return
}

// UpdateUser changes the profile of email. Users may edit themselves; managers
// may edit anyone. A new password is stored as a fresh hash.
func (s *DirectoryService) UpdateUser(ctx context.Context, requester Principal, email string, input UpdateUserInput) (user persistence.User, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("directory store not configured")
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "UpdateUser", "user", email, "requester", requester.Email)
	defer func() {
		logOutcome(ctx, logger, err, "user update failed", "user updated")
	}()

	if email == "" {
		err = fieldError("email", ErrMissingField)
		return
	}
	if normalizeEmail(requester.Email) != email && !requester.IsManager() {
		err = ErrForbidden
		return
	}

	input.FirstName = trimmedOrNil(input.FirstName)
	input.LastName = trimmedOrNil(input.LastName)
	if input.Password != nil && *input.Password == "" {
		input.Password = nil
	}
	if input.FirstName == nil && input.LastName == nil && input.Password == nil {
		err = fieldError("patch", ErrMissingField)
		return
	}
	if err = s.validateStruct(input); err != nil {
		return
	}

	changes := persistence.UserChanges{FirstName: input.FirstName, LastName: input.LastName}
	if input.Password != nil {
		hashed, hashErr := s.hash(*input.Password)
		if hashErr != nil {
			err = fmt.Errorf("hash password: %w", hashErr)
			return
		}
		changes.PasswordHash = &hashed
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		if err := tx.UpdateUser(ctx, email, changes); err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		updated, err := tx.FindUser(ctx, email)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		user = updated
		return nil
	})
	if err != nil {
		user = persistence.User{}
		return
	}
	user.PasswordHash = ""
	return
}

// DeleteUser removes email together with their invitations and sessions.
// Only managers may delete users, and users who still own bookings are kept.
func (s *DirectoryService) DeleteUser(ctx context.Context, requester Principal, email string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("directory store not configured")
	}

	email = normalizeEmail(email)
	var removed int64
	logger := s.loggerWith(ctx, "DeleteUser", "user", email, "requester", requester.Email)
	defer func() {
		logOutcome(ctx, logger, err, "user deletion failed", "user deleted", "invitations_removed", removed)
	}()

	if email == "" {
		return fieldError("email", ErrMissingField)
	}
	if !requester.IsManager() {
		return ErrForbidden
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		target, err := tx.LockUser(ctx, email)
		if err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		owned, err := tx.QueryBookings(ctx, persistence.BookingFilter{OwnerEmail: email})
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			return fmt.Errorf("%w: %d bookings", ErrUserOwnsBookings, len(owned))
		}

		removed, err = tx.DeleteInvitationsForUser(ctx, email)
		if err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, email); err != nil {
			return mapStoreError(err, ErrNotFound)
		}
		if target.Sector != nil {
			if err := tx.DecrementSectorMembers(ctx, *target.Sector); err != nil && !errors.Is(err, persistence.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// ListSectors returns all sectors ordered by name.
func (s *DirectoryService) ListSectors(ctx context.Context) (sectors []persistence.Sector, err error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("directory store not configured")
	}
	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		sectors, err = tx.ListSectors(ctx)
		return err
	})
	return sectors, err
}

// ListRooms returns the rooms of sector, or every room when sector is empty.
func (s *DirectoryService) ListRooms(ctx context.Context, sector string) (rooms []persistence.Room, err error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("directory store not configured")
	}
	sector = strings.TrimSpace(sector)
	err = s.store.WithinReadTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		rooms, err = tx.ListRooms(ctx, sector)
		return err
	})
	return rooms, err
}

// SyncCatalog upserts the configured sectors and rooms in one transaction.
// Equipment lists replace what is stored.
func (s *DirectoryService) SyncCatalog(ctx context.Context, specs []SectorSpec) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("directory store not configured")
	}

	var rooms int
	logger := s.loggerWith(ctx, "SyncCatalog", "sectors", len(specs))
	defer func() {
		logOutcome(ctx, logger, err, "catalog sync failed", "catalog synchronised", "rooms", rooms)
	}()

	v := &ValidationError{}
	for i, sector := range specs {
		if strings.TrimSpace(sector.Name) == "" {
			v.add(fmt.Sprintf("catalog[%d].name", i), ErrMissingField)
		}
		for j, room := range sector.Rooms {
			field := fmt.Sprintf("catalog[%d].rooms[%d]", i, j)
			if strings.TrimSpace(room.Name) == "" {
				v.add(field+".name", ErrMissingField)
			}
			if room.Capacity <= 0 {
				v.add(field+".capacity", ErrInvalidField)
			}
		}
	}
	if err = v.orNil(); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx persistence.Tx) error {
		rooms = 0
		for _, sector := range specs {
			name := strings.TrimSpace(sector.Name)
			if err := tx.UpsertSector(ctx, name); err != nil {
				return err
			}
			for _, room := range sector.Rooms {
				if err := tx.UpsertRoom(ctx, persistence.Room{
					Name:      strings.TrimSpace(room.Name),
					Sector:    name,
					Capacity:  room.Capacity,
					Equipment: room.Equipment,
				}); err != nil {
					return err
				}
				rooms++
			}
		}
		return nil
	})
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
