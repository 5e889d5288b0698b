package store

// schema defines the logical tables, the FTS5 virtual table, its
// maintenance triggers, and the indexes from spec §3/§4.6. CREATE
// statements are idempotent so runMigrations can be called on every
// startup.
const schema = `
CREATE TABLE IF NOT EXISTS providers (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

INSERT OR IGNORE INTO providers (name) VALUES
	('chatgpt'), ('claude'), ('gemini'), ('grok'), ('zed');

-- id is the row's integer primary key, assigned by the store on insert.
-- uid is the canonical stable string id ("<provider>_<external_uuid>" or a
-- content hash) computed by the canonical model before persistence.
CREATE TABLE IF NOT EXISTS conversations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	uid          TEXT NOT NULL UNIQUE,
	provider     TEXT NOT NULL,
	external_id  TEXT,
	title        TEXT,
	model        TEXT,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	raw_json     TEXT,
	system_prompt TEXT,
	temperature  REAL,
	max_tokens   INTEGER,
	user_id      TEXT,
	UNIQUE (provider, external_id)
);

CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversations_provider ON conversations(provider);
CREATE INDEX IF NOT EXISTS idx_conversations_model ON conversations(model);
CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id  INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	role             TEXT NOT NULL,
	content          TEXT NOT NULL,
	model            TEXT,
	created_at       INTEGER NOT NULL,
	tokens           INTEGER,
	finish_reason    TEXT,
	tool_calls_json  TEXT,
	attachments_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	conversation_id UNINDEXED,
	role UNINDEXED,
	tokenize = 'porter'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content, conversation_id, role)
	VALUES (new.id, new.content, new.conversation_id, new.role);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, conversation_id, role)
	VALUES ('delete', old.id, old.content, old.conversation_id, old.role);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content, conversation_id, role)
	VALUES ('delete', old.id, old.content, old.conversation_id, old.role);
	INSERT INTO messages_fts(rowid, content, conversation_id, role)
	VALUES (new.id, new.content, new.conversation_id, new.role);
END;

CREATE TABLE IF NOT EXISTS import_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	provider   TEXT NOT NULL,
	file_path  TEXT,
	status     TEXT NOT NULL,
	stats_json TEXT,
	error      TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_events_created_at ON import_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_import_events_provider ON import_events(provider);
`
