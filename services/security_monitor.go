package services

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	failedLoginWindow    = 10 * time.Minute
	failedLoginThreshold = 5
	alertCooldown        = time.Hour
	maxStoredAlerts      = 100
)

// SecurityEventMonitor aggregates failed logins per IP and raises alerts
type SecurityEventMonitor struct {
	mu           sync.Mutex
	now          func() time.Time
	failedLogins map[string][]time.Time // IP -> failure timestamps inside the window
	alertedIPs   map[string]time.Time   // IP -> last alert time
	alerts       []SecurityAlert        // newest first
}

// SecurityAlert represents a triggered security alert
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	Level     string    `json:"level"` // WARNING, CRITICAL
}

// Monitor is the process-wide instance used by the login handlers
var Monitor = NewSecurityMonitor(time.Now)

// NewSecurityMonitor creates an empty monitor using now as its clock
func NewSecurityMonitor(now func() time.Time) *SecurityEventMonitor {
	return &SecurityEventMonitor{
		now:          now,
		failedLogins: make(map[string][]time.Time),
		alertedIPs:   make(map[string]time.Time),
	}
}

// TrackFailedLogin records a failed login attempt and alerts once the
// threshold is reached inside the window
func (m *SecurityEventMonitor) TrackFailedLogin(ip, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-failedLoginWindow)
	valid := m.failedLogins[ip][:0]
	for _, t := range m.failedLogins[ip] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	valid = append(valid, now)
	m.failedLogins[ip] = valid

	if len(valid) >= failedLoginThreshold {
		m.triggerAlertLocked(now, ip, username, "Multiple failed logins detected")
	}
}

// ResetIP forgets the failures of an IP after a successful login
func (m *SecurityEventMonitor) ResetIP(ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failedLogins, ip)
}

// triggerAlertLocked stores and logs an alert, at most one per IP per cooldown
func (m *SecurityEventMonitor) triggerAlertLocked(now time.Time, ip, username, reason string) {
	if last, ok := m.alertedIPs[ip]; ok && now.Sub(last) < alertCooldown {
		return
	}
	m.alertedIPs[ip] = now

	alert := SecurityAlert{Timestamp: now, IP: ip, Username: username, Reason: reason, Level: "CRITICAL"}
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxStoredAlerts {
		m.alerts = m.alerts[:maxStoredAlerts]
	}

	log.Printf("[SECURITY ALERT] %s from IP: %s (last username: %s)", reason, ip, username)
}

// GetRecentAlerts returns a copy of recent alerts, newest first
func (m *SecurityEventMonitor) GetRecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	alertsCopy := make([]SecurityAlert, len(m.alerts))
	copy(alertsCopy, m.alerts)
	return alertsCopy
}

// Prune removes stale failure windows and expired cooldowns
func (m *SecurityEventMonitor) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for ip, attempts := range m.failedLogins {
		if len(attempts) == 0 || now.Sub(attempts[len(attempts)-1]) > failedLoginWindow {
			delete(m.failedLogins, ip)
		}
	}
	for ip, last := range m.alertedIPs {
		if now.Sub(last) > alertCooldown {
			delete(m.alertedIPs, ip)
		}
	}
}

// RunCleanup prunes the monitor every hour until ctx is done
func (m *SecurityEventMonitor) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune()
		}
	}
}
