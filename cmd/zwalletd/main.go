package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zwallet-network/zwallet-daemon/internal/config"
	"github.com/zwallet-network/zwallet-daemon/internal/core/application"
	"github.com/zwallet-network/zwallet-daemon/internal/core/domain"
	"github.com/zwallet-network/zwallet-daemon/internal/infrastructure/chain"
	"github.com/zwallet-network/zwallet-daemon/internal/infrastructure/prover"
	dbbadger "github.com/zwallet-network/zwallet-daemon/internal/infrastructure/storage/db/badger"
	"github.com/zwallet-network/zwallet-daemon/pkg/keystore"
	boltsecurestore "github.com/zwallet-network/zwallet-daemon/pkg/securestore/bolt"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()

	repoManager, err := dbbadger.NewDbManager(
		config.GetString(config.DatadirKey)+"/"+config.DbLocation, nil,
	)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer repoManager.Close()

	secureStore, err := boltsecurestore.NewSecureStorage(datadir, "keystore.db")
	if err != nil {
		log.WithError(err).Panic("error while opening keystore")
	}

	keyStore, err := keystore.New(secureStore)
	if err != nil {
		log.WithError(err).Panic("error while initializing keystore")
	}

	chainSource, err := chain.NewService(
		config.GetString(config.NodeEndpointKey),
		config.GetInt(config.NodeRequestLimitKey),
	)
	if err != nil {
		log.WithError(err).Panic("error while connecting to node")
	}

	proverSvc, err := prover.NewService(config.GetString(config.ProverEndpointKey))
	if err != nil {
		log.WithError(err).Panic("error while connecting to prover")
	}

	accountRepo := dbbadger.NewAccountRepositoryImpl(repoManager)
	noteRepo := dbbadger.NewNoteRepositoryImpl(repoManager)
	proposalRepo := dbbadger.NewProposalRepositoryImpl(repoManager)

	spendPolicy := domain.SpendPolicy{
		MinConfirmations:          uint32(config.GetInt(config.MinConfirmationsKey)),
		UntrustedMinConfirmations: uint32(config.GetInt(config.UntrustedMinConfirmationsKey)),
		AllowTransparentZeroConf:  config.GetBool(config.AllowTransparentZeroConfKey),
	}.Normalize()

	transferSvc := application.NewTransferService(
		accountRepo, noteRepo, proposalRepo, keyStore, chainSource, proverSvc,
		application.TransferConfig{
			SpendPolicy: spendPolicy,
			ActionLimits: application.ActionLimits{
				MaxTransparentInputs: config.GetInt(config.MaxTransparentInputsKey),
				MaxSaplingActions:    config.GetInt(config.MaxSaplingSpendsKey),
				MaxOrchardActions:    config.GetInt(config.MaxOrchardActionsKey),
			},
			ReservationTTL: time.Duration(config.GetInt(config.ReservationTTLKey)) * time.Second,
			ExpiryDelta:    uint32(config.GetInt(config.TxExpiryDeltaKey)),
		},
	)
	accountSvc := application.NewAccountService(
		accountRepo, noteRepo, keyStore, chainSource, spendPolicy,
	)
	maintenanceSvc := application.NewMaintenanceService(
		accountRepo, noteRepo, proposalRepo, transferSvc, accountSvc,
		chainSource, spendPolicy,
		application.MaintenanceConfig{
			Interval:        time.Duration(config.GetInt(config.MaintenanceIntervalKey)) * time.Second,
			TargetNoteCount: config.GetInt(config.TargetNoteCountKey),
			MinSplitValue:   uint64(config.GetInt(config.MinSplitValueKey)),
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	go maintenanceSvc.Run(ctx)

	log.Info("wallet daemon is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	cancel()
	log.Info("shutting down")
}
