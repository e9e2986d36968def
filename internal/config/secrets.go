package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Secrets mirrors the device secrets file. The file may be JSON or YAML.
//
//	{"WIFI": {"ssid": "...", "passwd": "..."},
//	 "BROKER": {"server": "...", "port": 1883, "token": "..."}}
//
// A legacy "BLYNK" section is accepted in place of "BROKER".
type Secrets struct {
	WiFi   WiFiSecrets   `yaml:"WIFI"`
	Broker BrokerSecrets `yaml:"BROKER"`
	Blynk  BrokerSecrets `yaml:"BLYNK"`
}

// WiFiSecrets holds the network credentials. Association is handled by the
// OS; the SSID is only used for status display.
type WiFiSecrets struct {
	SSID   string `yaml:"ssid"`
	Passwd string `yaml:"passwd"`
}

// BrokerSecrets holds the remote session endpoint and token.
type BrokerSecrets struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	Token  string `yaml:"token"`
}

// LoadSecrets reads the secrets file.
func LoadSecrets(path string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}

	var s Secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse secrets %s: %w", path, err)
	}
	if s.Broker.Server == "" && s.Broker.Token == "" {
		s.Broker = s.Blynk
	}
	return &s, nil
}

// ApplySecrets overrides the broker endpoint and credentials. The token is
// used as the MQTT password.
func (c *Config) ApplySecrets(s *Secrets) {
	if s == nil {
		return
	}
	if s.Broker.Server != "" {
		port := s.Broker.Port
		if port == 0 {
			port = 1883
		}
		c.MQTT.Broker = "tcp://" + net.JoinHostPort(s.Broker.Server, strconv.Itoa(port))
	}
	if s.Broker.Token != "" {
		c.MQTT.Password = s.Broker.Token
	}
}
