package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"tankarena/internal/arena"
	"tankarena/internal/config"
	"tankarena/internal/netclient"
	"tankarena/internal/store"
)

const frameRate = 60

func main() {
	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Warn("ignoring .env")
	}
	cfg, err := config.LoadPeer(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := config.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}
	logger := log.WithField("app", "tankpeer")

	opts := arena.Options{Logger: logger}
	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		logger.WithError(err).Warn("running without local store")
	} else {
		defer db.Close()
		opts.Settings = db
		opts.Recorder = db
	}

	var client *netclient.Client
	if !cfg.Offline {
		client = netclient.New(cfg.RelayURL, logger)
		opts.Network = client
		opts.Rooms = client
	}
	game := arena.New(opts)
	if client != nil {
		client.Attach(game)
	}
	lobby := game.Lobby()

	if cfg.Nickname != "" {
		if err := lobby.SetNickname(cfg.Nickname); err != nil {
			logger.WithError(err).Warn("nickname not saved")
		}
	}

	join := func() {
		var err error
		if cfg.Room != "" {
			if err = lobby.SetRoomName(cfg.Room); err == nil {
				err = lobby.JoinOrCreate()
			}
		} else {
			err = lobby.JoinRandom()
		}
		if err != nil {
			logger.WithError(err).Warn("join failed")
		}
	}

	joined := false
	game.Subscribe(arena.EventMenuChanged, arena.ListenerFunc(func(e arena.Event) {
		fmt.Printf("menu: %s\n", e.Text)
		if e.Text == arena.MenuRooms.String() && !joined {
			joined = true
			join()
		}
	}))
	game.Subscribe(arena.EventSceneChanged, arena.ListenerFunc(func(e arena.Event) {
		fmt.Printf("scene: %s\n", e.Text)
	}))
	game.Subscribe(arena.EventNotice, arena.ListenerFunc(func(e arena.Event) {
		fmt.Printf("notice: %s\n", e.Text)
	}))
	game.Subscribe(arena.EventTankDestroyed, arena.ListenerFunc(func(e arena.Event) {
		fmt.Printf("tank %d destroyed\n", e.Entity.ID())
	}))
	game.Subscribe(arena.EventRoundOver, arena.ListenerFunc(func(e arena.Event) {
		local, opp := game.Match().Scores()
		fmt.Printf("%s (round %d, score %d:%d)\n", e.Text, game.Match().Round(), local, opp)
	}))

	if cfg.Offline {
		lobby.PlayOffline()
	} else if err := lobby.Connect(); err != nil {
		logger.WithError(err).Fatal("connect")
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	loop := arena.NewLoop(game, arena.DefaultFixedStep)
	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()
	last := time.Now()
	var in controls

	for {
		select {
		case line, ok := <-lines:
			act := actQuit
			if ok {
				act = in.apply(line)
			}
			switch act {
			case actPause:
				game.Match().SetPaused(!game.Match().Paused())
				fmt.Printf("paused: %v\n", game.Match().Paused())
			case actLeave:
				if err := game.Match().LeaveRoom(); err != nil {
					logger.WithError(err).Warn("leave")
				}
			case actJoin:
				if lobby.State() == arena.MenuRooms {
					join()
				}
			case actUnknown:
				fmt.Println("commands: left right fire fwd back stop pause leave join quit")
			case actQuit:
				shutdown(game, client, db)
				return
			}

		case now := <-ticker.C:
			loop.Advance(now.Sub(last), in.frame())
			last = now
		}
	}
}

func shutdown(game *arena.Game, client *netclient.Client, db *store.DB) {
	if client != nil {
		if game.Match().Scene() == arena.SceneWorld {
			game.Match().LeaveRoom()
		}
		client.Disconnect()
	}
	if db == nil {
		return
	}
	wins, losses, err := db.Record()
	if err != nil {
		log.WithError(err).Warn("read record")
		return
	}
	fmt.Printf("record: %d won, %d lost\n", wins, losses)
}
