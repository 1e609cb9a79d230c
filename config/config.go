package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr           string
	DBUrl          string
	TokenSecret    string
	TokenTTL       time.Duration
	SubmitTokenTTL time.Duration
	SaveDebounce   time.Duration
	AIUrl          string
	AIKey          string
	AIModel        string
	Debug          bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "formloom.sqlite", "path to SQLite3 DB file (default formloom.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token signing and verification")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 120, "auth token TTL in seconds (default 120)")
	var submitTTL uint
	flag.UintVar(&submitTTL, "submit-token-ttl", 900, "submit token TTL in seconds (default 900)")
	var debounce uint
	flag.UintVar(&debounce, "save-debounce", 1500, "builder autosave quiet period in milliseconds (default 1500)")
	flag.StringVar(&cfg.AIUrl, "ai-url", "", "chat completion endpoint for question suggestions")
	flag.StringVar(&cfg.AIKey, "ai-key", "", "API key for the completion endpoint")
	flag.StringVar(&cfg.AIModel, "ai-model", "gpt-4o-mini", "completion model name")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.SubmitTokenTTL = time.Duration(submitTTL) * time.Second
	cfg.SaveDebounce = time.Duration(debounce) * time.Millisecond

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
