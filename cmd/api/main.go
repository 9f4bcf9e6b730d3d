package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"taskhub/internal/cache"
	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/jobs"
	"taskhub/internal/mail"
	"taskhub/internal/middleware"
	"taskhub/internal/modules/attachments"
	"taskhub/internal/modules/auth"
	"taskhub/internal/modules/comments"
	"taskhub/internal/modules/notifications"
	"taskhub/internal/modules/projects"
	"taskhub/internal/modules/tasks"
	"taskhub/internal/modules/teams"
	jwtsvc "taskhub/internal/pkg/jwt"
	"taskhub/internal/pkg/validator"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := validator.RegisterCustom(); err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	jobRepo := repository.NewJobRepository(db)
	resolver := repository.NewTargetResolver(db)

	// Permission engine. Grants come from the seeded tables; the seeded
	// defaults cover an empty database.
	grantNames, err := roleRepo.LoadGrants(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	grants := policy.FromNames(grantNames)
	if len(grants) == 0 {
		log.Print("permission tables are empty, using built-in grants (run the seeder)")
		grants = policy.DefaultGrants()
	}
	engine := policy.NewEngine(grants, resolver)

	// Blob storage: a URL-addressable public disk and a private disk
	// reachable only through the download endpoint.
	store := storage.NewStore()
	store.Mount(domain.DiskPublic, storage.NewLocalDisk(filepath.Join(cfg.StorageRoot, "public"), cfg.PublicBaseURL))
	store.Mount(domain.DiskPrivate, storage.NewLocalDisk(filepath.Join(cfg.StorageRoot, "private"), ""))

	var mailer mail.Mailer
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.MailFrom)
	} else {
		log.Print("SMTP_ADDR not set, mail goes to the process log")
		mailer = mail.NewLogMailer()
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	memCache := cache.New(time.Minute)
	emitter := events.NewEmitter(outboxRepo)

	// Services and handlers
	hub := notifications.NewHub()
	notificationService := notifications.NewService(notificationRepo, hub)
	notificationHandler := notifications.NewHandler(notificationService, hub)

	authService := auth.NewService(userRepo, roleRepo, j, engine)
	authHandler := auth.NewHandler(authService)

	teamService := teams.NewService(teamRepo, engine, memCache)
	teamHandler := teams.NewHandler(teamService)

	projectService := projects.NewService(projectRepo, engine, emitter, memCache)
	projectHandler := projects.NewHandler(projectService)

	taskService := tasks.NewService(taskRepo, userRepo, engine, emitter)
	taskHandler := tasks.NewHandler(taskService)

	commentService := comments.NewService(commentRepo, resolver, engine, emitter)
	commentHandler := comments.NewHandler(commentService)

	attachmentService := attachments.NewService(attachmentRepo, store, resolver, engine, emitter)
	attachmentHandler := attachments.NewHandler(attachmentService)

	// Background processing: outbox dispatcher feeding the job queue,
	// one worker per named queue.
	registry := jobs.NewRegistry()
	handlers := jobs.NewHandlers(taskRepo, userRepo, commentRepo, attachmentRepo, notificationService, mailer, store)
	handlers.RegisterAll(registry)

	queue := jobs.NewQueue(jobRepo)
	dispatcher := events.NewDispatcher(outboxRepo, queue, cfg.WorkerPollInterval)
	runner := jobs.NewRunner(jobRepo, registry,
		[]string{domain.QueueDefault, domain.QueueEmails, domain.QueueFileProcessing},
		cfg.WorkerPollInterval, cfg.JobTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go dispatcher.Run(ctx)
	go runner.Run(ctx)

	// HTTP surface
	r := gin.New()
	r.Use(gin.Logger(), middleware.ErrorLogger(), middleware.CORS())
	r.Static(cfg.PublicBaseURL, filepath.Join(cfg.StorageRoot, "public"))

	api := r.Group("/api")
	{
		public := api.Group("/")
		protected := api.Group("/")
		protected.Use(middleware.JWTAuth(j))

		authHandler.RegisterRoutes(public, protected)
		teamHandler.RegisterRoutes(protected)
		projectHandler.RegisterRoutes(protected)
		taskHandler.RegisterRoutes(protected)
		commentHandler.RegisterRoutes(protected)
		attachmentHandler.RegisterRoutes(protected)
		notificationHandler.RegisterRoutes(protected)
	}

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
