package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/smartspace/internal/application"
)

// ServiceFactory builds application services on a shared Clock and
// IDGenerator so tests can predict ids and timestamps.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory starts the clock at ReferenceTime and numbers ids
// "id-1", "id-2", ...
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.IDGenerator = generator }
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Logger = logger }
}

// PlainHasher stores passwords as "plain:<password>". Argon2 is slow enough
// to matter across a test suite.
func PlainHasher(password string) (string, error) {
	return "plain:" + password, nil
}

// PlainVerifier accepts hashes produced by PlainHasher.
func PlainVerifier(hashed, password string) error {
	if hashed != "plain:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}

func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(users, f.IDGenerator.NextFunc(), PlainHasher, f.Clock.NowFunc(), f.Logger)
}

func (f *ServiceFactory) NewRoomService(rooms application.RoomRepository) *application.RoomService {
	return application.NewRoomServiceWithLogger(rooms, f.Clock.NowFunc(), f.Logger)
}

func (f *ServiceFactory) NewBookingService(bookings application.BookingRepository, rooms application.RoomCatalog, users application.UserDirectory) *application.BookingService {
	return application.NewBookingServiceWithLogger(bookings, rooms, users, f.Clock.NowFunc(), f.Logger)
}

// NewDashboardService computes days in Zone.
func (f *ServiceFactory) NewDashboardService(bookings application.BookingRepository) *application.DashboardService {
	return application.NewDashboardServiceWithLogger(bookings, f.Clock.NowFunc(), Zone, f.Logger)
}

// NewAuthService issues session tokens from the factory's IDGenerator and
// verifies PlainHasher hashes.
func (f *ServiceFactory) NewAuthService(credentials application.CredentialStore, sessions application.SessionRepository, ttl time.Duration) *application.AuthService {
	return application.NewAuthServiceWithLogger(credentials, sessions, PlainVerifier, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), ttl, f.Logger)
}
