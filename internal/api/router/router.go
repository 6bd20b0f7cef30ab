// Package router assembles the HTTP surface of the clinic API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/dentists"
	httpmiddleware "github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/observability/metrics"
	"github.com/oralflow/oralflow-api/internal/patients"
	"github.com/oralflow/oralflow-api/internal/payments"
	"github.com/oralflow/oralflow-api/internal/records"
	"github.com/oralflow/oralflow-api/internal/reports"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	JWTSecret           string
	UsersHandler        *users.Handler
	PatientsHandler     *patients.Handler
	DentistsHandler     *dentists.Handler
	AppointmentsHandler *appointments.Handler
	RecordsHandler      *records.Handler
	PaymentsHandler     *payments.Handler
	SettingsHandler     *settings.Handler
	ReportsHandler      *reports.Handler
	MetricsHandler      http.Handler
	Metrics             *metrics.ClinicMetrics
	CORSAllowedOrigins  []string
	LoginRatePerSecond  float64
	LoginRateBurst      int
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(httpmiddleware.Metrics(cfg.Metrics))
	}

	staff := httpmiddleware.RequireRoles(httpmiddleware.RoleAdmin, httpmiddleware.RoleClinicAdmin)
	clinical := httpmiddleware.RequireRoles(
		httpmiddleware.RoleAdmin, httpmiddleware.RoleClinicAdmin, httpmiddleware.RoleDentist)

	loginRate := cfg.LoginRatePerSecond
	if loginRate <= 0 {
		loginRate = 1
	}
	loginBurst := cfg.LoginRateBurst
	if loginBurst <= 0 {
		loginBurst = 5
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		public.Route("/auth", func(auth chi.Router) {
			auth.Use(httpmiddleware.RateLimit(loginRate, loginBurst))
			auth.Post("/login", cfg.UsersHandler.Login)
			auth.Post("/refresh", cfg.UsersHandler.Refresh)
			auth.Post("/password-reset", cfg.UsersHandler.RequestPasswordReset)
			auth.Post("/password-reset/confirm", cfg.UsersHandler.ConfirmPasswordReset)
		})

		// Adult self-registration; staff register everyone else.
		public.With(httpmiddleware.RateLimit(loginRate, loginBurst)).
			Post("/patients/register", cfg.PatientsHandler.SelfRegister)
	})

	// Authenticated API
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.JWTSecret))

		api.Get("/auth/me", cfg.UsersHandler.Me)

		api.Route("/users", func(u chi.Router) {
			u.Use(staff)
			u.Post("/", cfg.UsersHandler.CreateUser)
			u.Get("/", cfg.UsersHandler.ListUsers)
			u.Get("/{userID}", cfg.UsersHandler.GetUser)
			u.Patch("/{userID}", cfg.UsersHandler.UpdateUser)
		})

		api.Route("/patients", func(p chi.Router) {
			p.Get("/me", cfg.PatientsHandler.Me)
			p.With(staff).Post("/", cfg.PatientsHandler.CreatePatient)
			p.With(clinical).Get("/", cfg.PatientsHandler.ListPatients)
			p.Route("/{patientID}", func(pp chi.Router) {
				pp.Get("/", cfg.PatientsHandler.GetPatient)
				pp.Patch("/", cfg.PatientsHandler.UpdatePatient)
				pp.Get("/background", cfg.PatientsHandler.GetBackground)
				pp.With(clinical).Put("/background", cfg.PatientsHandler.PutBackground)
				pp.Get("/records", cfg.RecordsHandler.ListForPatient)
			})
		})

		api.Route("/specialties", func(s chi.Router) {
			s.Get("/", cfg.DentistsHandler.ListSpecialties)
			s.With(staff).Post("/", cfg.DentistsHandler.CreateSpecialty)
		})

		api.Route("/dentists", func(d chi.Router) {
			d.Get("/", cfg.DentistsHandler.ListDentists)
			d.With(staff).Post("/", cfg.DentistsHandler.CreateDentist)
			d.Route("/{dentistID}", func(dd chi.Router) {
				dd.Get("/", cfg.DentistsHandler.GetDentist)
				dd.Get("/schedules", cfg.DentistsHandler.ListSchedules)
				dd.With(clinical).Post("/schedules", cfg.DentistsHandler.CreateSchedule)
				dd.With(clinical).Delete("/schedules/{scheduleID}", cfg.DentistsHandler.DeleteSchedule)
			})
		})

		api.Route("/blocks", func(b chi.Router) {
			b.Use(clinical)
			b.Get("/", cfg.DentistsHandler.ListBlocks)
			b.Post("/", cfg.DentistsHandler.CreateBlocks)
			b.Delete("/{groupID}", cfg.DentistsHandler.DeleteBlockGroup)
		})

		api.Route("/operatories", func(o chi.Router) {
			o.Get("/", cfg.AppointmentsHandler.ListOperatories)
			o.With(staff).Post("/", cfg.AppointmentsHandler.CreateOperatory)
		})

		api.Get("/availability", cfg.AppointmentsHandler.Availability)

		api.Route("/appointments", func(a chi.Router) {
			a.Post("/", cfg.AppointmentsHandler.Book)
			a.Get("/", cfg.AppointmentsHandler.List)
			a.With(clinical).Post("/maintenance", cfg.AppointmentsHandler.CreateMaintenance)
			a.Route("/{appointmentID}", func(aa chi.Router) {
				aa.Get("/", cfg.AppointmentsHandler.Get)
				aa.Post("/confirm", cfg.AppointmentsHandler.Confirm)
				aa.Post("/cancel", cfg.AppointmentsHandler.Cancel)
				aa.With(clinical).Post("/complete", cfg.AppointmentsHandler.Complete)
				aa.Post("/reschedule", cfg.AppointmentsHandler.Reschedule)
				aa.Get("/record", cfg.RecordsHandler.ForAppointment)
				aa.With(staff).Get("/payment", cfg.PaymentsHandler.ForAppointment)
				aa.With(staff).Post("/receipt", cfg.PaymentsHandler.UploadReceipt)
			})
		})

		api.Route("/records", func(rec chi.Router) {
			rec.With(clinical).Post("/", cfg.RecordsHandler.Create)
			rec.Route("/{recordID}", func(rr chi.Router) {
				rr.Get("/", cfg.RecordsHandler.Get)
				rr.With(clinical).Patch("/", cfg.RecordsHandler.Update)
				rr.With(clinical).Post("/attachments", cfg.RecordsHandler.UploadAttachment)
			})
			rec.Get("/attachments/{attachmentID}", cfg.RecordsHandler.DownloadAttachment)
			rec.With(clinical).Delete("/attachments/{attachmentID}", cfg.RecordsHandler.DeleteAttachment)
		})

		api.Route("/payments", func(pay chi.Router) {
			pay.Use(staff)
			pay.Post("/", cfg.PaymentsHandler.Create)
			pay.Get("/", cfg.PaymentsHandler.List)
			pay.Post("/{paymentID}/refund", cfg.PaymentsHandler.Refund)
		})

		api.Route("/settings", func(s chi.Router) {
			s.Use(staff)
			s.Get("/", cfg.SettingsHandler.Get)
			s.Put("/", cfg.SettingsHandler.Put)
		})

		api.With(staff).Get("/reports/overview", cfg.ReportsHandler.Overview)
	})

	return r
}
