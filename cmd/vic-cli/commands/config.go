package commands

import (
	"os"
	"time"
	"vicharvest/lib/configutil"
	"vicharvest/lib/identity"
	"vicharvest/lib/restyutil"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/serviceutil"
	"vicharvest/lib/telemetry"
	"vicharvest/services/harvester"
)

type VpnConfig struct {
	Enabled    bool     `json:"enabled"`
	Rotate     []string `json:"rotate"`
	Disconnect []string `json:"disconnect"`
}

type HarvestConfig struct {
	ResyncEvery     int `json:"resync_every"`
	RotateEvery     int `json:"rotate_every"`
	CheckpointEvery int `json:"checkpoint_every"`
	MinWaitSeconds  int `json:"min_wait_seconds"`
	MaxWaitSeconds  int `json:"max_wait_seconds"`
}

type CrawlConfig struct {
	RotateEvery int  `json:"rotate_every"`
	UniqueLinks bool `json:"unique_links"`
}

type Config struct {
	// Database is a sqlite file, `:memory:` or a libsql url. VIC_DATABASE
	// takes precedence over it.
	Database    string `json:"database"`
	SnapshotDir string `json:"snapshot_dir"`

	BaseUrl           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	// DumpHttp is a directory every http exchange is written to.
	DumpHttp string `json:"dump_http"`

	Vpn     VpnConfig     `json:"vpn"`
	Harvest HarvestConfig `json:"harvest"`
	Crawl   CrawlConfig   `json:"crawl"`
}

var defaultConfig = Config{
	Database:          "ideas.db",
	SnapshotDir:       ".",
	BaseUrl:           vic.DefaultBaseUrl,
	RequestsPerSecond: 1,
	Harvest: HarvestConfig{
		ResyncEvery:     10,
		RotateEvery:     60,
		CheckpointEvery: 20,
		MinWaitSeconds:  1,
		MaxWaitSeconds:  15,
	},
	Crawl: CrawlConfig{
		RotateEvery: 10,
	},
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfigOr(*configPath, defaultConfig)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if database := os.Getenv("VIC_DATABASE"); database != "" {
		cfg.Database = database
	}
	return cfg
}

func (c Config) harvesterConfig() harvester.Config {
	return harvester.Config{
		Dir:             c.SnapshotDir,
		ResyncEvery:     c.Harvest.ResyncEvery,
		RotateEvery:     c.Harvest.RotateEvery,
		CheckpointEvery: c.Harvest.CheckpointEvery,
		MinWait:         time.Duration(c.Harvest.MinWaitSeconds) * time.Second,
		MaxWait:         time.Duration(c.Harvest.MaxWaitSeconds) * time.Second,
	}
}

func (c Config) rotator(tel telemetry.API) identity.Rotator {
	if !c.Vpn.Enabled {
		return identity.Noop{}
	}
	if len(c.Vpn.Rotate) == 0 && len(c.Vpn.Disconnect) == 0 {
		return identity.NewProtonRotator(tel)
	}
	return identity.NewCommandRotator(c.Vpn.Rotate, c.Vpn.Disconnect, tel)
}

func (c Config) client(tel telemetry.API) *vic.Client {
	client, err := vic.NewClient(vic.ClientOptions{
		BaseUrl:           c.BaseUrl,
		RequestsPerSecond: c.RequestsPerSecond,
		UserAgent:         c.UserAgent,
	}, tel)
	if err != nil {
		serviceutil.Fatal("failed to create client", err)
	}

	var output restyutil.InstrumentOutput
	if c.DumpHttp != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(c.DumpHttp)
		if err != nil {
			serviceutil.Fatal("failed to create http dump directory", err)
		}
		output = fsOutput
	}
	restyutil.InstrumentClient(client.Http, nil, output)

	return client
}
