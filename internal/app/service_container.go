package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"go-hedgevault/internal/capability"
	"go-hedgevault/internal/config"
	"go-hedgevault/internal/db"
	"go-hedgevault/internal/hedge"
	"go-hedgevault/internal/notify"
	"go-hedgevault/internal/repository"
	"go-hedgevault/internal/services"
	"go-hedgevault/internal/utils"
	"go-hedgevault/internal/vault"
)

// ServiceContainer wires the process: capability tokens, state machines,
// repositories, publishers and services.
type ServiceContainer struct {
	DB *gorm.DB

	// Repositories
	ProxyRepo        repository.ProxyRepository
	WithdrawalRepo   repository.WithdrawalRepository
	CommitmentRepo   repository.CommitmentRepository
	BatchRepo        repository.BatchRepository
	NotificationRepo repository.NotificationRepository

	// Capability layer. The genesis Admin token is minted at authority
	// creation; Guardian and Relayer are granted to the process itself.
	Authority     *capability.Authority
	AdminToken    *capability.Token
	GuardianToken *capability.Token
	RelayerToken  *capability.Token

	// Core services
	VaultService *services.VaultService
	HedgeService *services.HedgeService

	// Notification pipeline
	NATSPublisher        *notify.NATSPublisher
	WebSocketPushService *services.WebSocketPushService

	// Background services
	BatchScheduler *services.BatchSchedulerService
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container exactly once. Config must be
// loaded and the database initialized first; a nil db.DB is tolerated and
// disables the index repositories.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{DB: db.DB}

		if err := container.initCapabilities(); err != nil {
			initErr = fmt.Errorf("failed to initialize capabilities: %w", err)
			return
		}
		container.initRepositories()
		if err := container.initServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize services: %w", err)
			return
		}

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initCapabilities() error {
	cfg := config.AppConfig
	deployer := common.Address{}
	if cfg.Vault.Deployer != "" {
		addr, err := utils.ParseAddress(cfg.Vault.Deployer)
		if err != nil {
			return fmt.Errorf("invalid deployer address: %w", err)
		}
		deployer = addr
	} else {
		log.Println("⚠️ No deployer configured, genesis Admin bound to the zero address")
	}

	authority, adminToken := capability.NewAuthority(deployer)

	guardianToken, err := authority.Grant(adminToken, capability.RoleGuardian, deployer)
	if err != nil {
		return fmt.Errorf("failed to grant guardian capability: %w", err)
	}
	relayerToken, err := authority.Grant(adminToken, capability.RoleRelayer, deployer)
	if err != nil {
		return fmt.Errorf("failed to grant relayer capability: %w", err)
	}

	c.Authority = authority
	c.AdminToken = adminToken
	c.GuardianToken = guardianToken
	c.RelayerToken = relayerToken
	log.Printf("🔑 Capability tokens minted for %s", deployer.Hex())
	return nil
}

func (c *ServiceContainer) initRepositories() {
	if c.DB == nil {
		log.Println("⚠️ Database not available, running without index tables")
		return
	}
	log.Println("📦 Initializing Repositories...")
	c.ProxyRepo = repository.NewProxyRepository(c.DB)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(c.DB)
	c.CommitmentRepo = repository.NewCommitmentRepository(c.DB)
	c.BatchRepo = repository.NewBatchRepository(c.DB)
	c.NotificationRepo = repository.NewNotificationRepository(c.DB)
}

func (c *ServiceContainer) initServices() error {
	cfg := config.AppConfig

	// Notification fan-out: websocket always, NATS and the database log
	// when configured.
	c.WebSocketPushService = services.NewWebSocketPushService()
	publishers := notify.Multi{c.WebSocketPushService}

	if cfg.NATS.URL != "" {
		natsPublisher, err := notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect NATS publisher: %w", err)
		}
		c.NATSPublisher = natsPublisher
		publishers = append(publishers, natsPublisher)
		log.Printf("✅ NATS publisher connected to %s", cfg.NATS.URL)
	} else {
		log.Println("⚠️ NATS URL not configured, skipping NATS publisher")
	}

	if c.NotificationRepo != nil {
		publishers = append(publishers, services.NewNotificationLogService(c.NotificationRepo))
	}

	vaultState := vault.NewState(c.Authority, cfg.Vault.TimeLockThreshold, cfg.Vault.TimeLockDuration)
	hedgeState := hedge.NewState(c.Authority)

	c.VaultService = services.NewVaultService(vaultState, c.ProxyRepo, c.WithdrawalRepo, publishers)
	c.HedgeService = services.NewHedgeService(hedgeState, c.CommitmentRepo, c.BatchRepo, publishers)

	tick := time.Duration(cfg.Hedge.SchedulerTickMs) * time.Millisecond
	c.BatchScheduler = services.NewBatchSchedulerService(c.HedgeService, tick)
	return nil
}

// Shutdown stops background services and closes external connections.
func (c *ServiceContainer) Shutdown() {
	if c.BatchScheduler != nil {
		c.BatchScheduler.Stop()
	}
	if c.NATSPublisher != nil {
		c.NATSPublisher.Close()
	}
}
