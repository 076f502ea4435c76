package database

import "testing"

func TestParseTemplate(t *testing.T) {
	tpl := ParseTemplate("/var/lib/syslogd/logs.sqlite3")

	if tpl.Dir != "/var/lib/syslogd" {
		t.Errorf("Dir = %q, want /var/lib/syslogd", tpl.Dir)
	}
	if tpl.Base != "logs" {
		t.Errorf("Base = %q, want logs", tpl.Base)
	}
	if tpl.Ext != ".sqlite3" {
		t.Errorf("Ext = %q, want .sqlite3", tpl.Ext)
	}
}

func TestParseTemplateNoExtension(t *testing.T) {
	tpl := ParseTemplate("./data/logs")

	if tpl.Base != "logs" {
		t.Errorf("Base = %q, want logs", tpl.Base)
	}
	if tpl.Ext != "" {
		t.Errorf("Ext = %q, want empty", tpl.Ext)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn("/tmp/logs.sqlite3", false); got != "file:/tmp/logs.sqlite3?mode=rwc&_journal_mode=WAL&_busy_timeout=5000" {
		t.Errorf("dsn(writer) = %q", got)
	}
	if got := dsn("/tmp/logs.sqlite3", true); got != "file:/tmp/logs.sqlite3?mode=ro&_journal_mode=WAL&_busy_timeout=5000" {
		t.Errorf("dsn(reader) = %q", got)
	}
}
