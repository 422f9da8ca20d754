package www

import (
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

func (h *Handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	data := h.page(w, r, "config")
	data["Config"] = h.engine.AppConfig()
	data["MessagingOK"] = h.engine.MessagingConnected()
	h.render(w, "config.html", data)
}

func (h *Handlers) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	section := r.FormValue("section")
	cfg := h.engine.AppConfig()

	cfg.Lock()
	switch section {
	case "messaging":
		cfg.Messaging.Backend = r.FormValue("msg_backend")
		cfg.Messaging.Kafka.Brokers = splitTrim(r.FormValue("kafka_brokers"), ",")
		cfg.Messaging.MQTT.Broker = r.FormValue("mqtt_broker")
		if p, err := strconv.Atoi(r.FormValue("mqtt_port")); err == nil {
			cfg.Messaging.MQTT.Port = p
		}
		cfg.Messaging.MQTT.ClientID = r.FormValue("mqtt_client_id")
		if t := strings.TrimSpace(r.FormValue("events_topic")); t != "" {
			cfg.Messaging.EventsTopic = t
		}
	case "mail":
		cfg.Mail.Host = r.FormValue("mail_host")
		if p, err := strconv.Atoi(r.FormValue("mail_port")); err == nil {
			cfg.Mail.Port = p
		}
		cfg.Mail.Username = r.FormValue("mail_username")
		// A blank password field keeps the stored one.
		if pw := r.FormValue("mail_password"); pw != "" {
			cfg.Mail.Password = pw
		}
		cfg.Mail.From = r.FormValue("mail_from")
	case "company":
		cfg.Company.Name = r.FormValue("company_name")
		cfg.Company.Address = r.FormValue("company_address")
		cfg.Company.Phone = r.FormValue("company_phone")
		cfg.Company.Email = r.FormValue("company_email")
	default:
		cfg.Unlock()
		http.Error(w, "unknown section", http.StatusBadRequest)
		return
	}
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		h.flash(w, r, "error", "Failed to save: "+err.Error())
		http.Redirect(w, r, "/config", http.StatusSeeOther)
		return
	}

	msg := "Settings saved"
	if section == "messaging" {
		h.engine.ReconfigureMessaging()
	} else {
		msg += ", they apply after a restart"
	}

	log.Printf("config: %s section saved by %s", section, h.getUsername(r))
	h.flash(w, r, "success", msg)
	http.Redirect(w, r, "/config", http.StatusSeeOther)
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
