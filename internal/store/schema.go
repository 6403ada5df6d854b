package store

// schema creates all six entities from spec §3. Foreign keys bind the full
// (geo_id, pmid) pair against a full unique index on universal_identifier —
// never a partial index (`WHERE pmid IS NOT NULL`), which is the exact
// pitfall spec §9 calls out: a partial index does not satisfy SQLite's
// foreign-key target requirement, and joins that only bind one column silently
// cross-match rows across different GEO series.
const schema = `
CREATE TABLE IF NOT EXISTS universal_identifier (
	geo_id               TEXT NOT NULL,
	pmid                 TEXT NOT NULL,
	pmcid                TEXT,
	doi                  TEXT,
	title                TEXT,
	first_discovered_at  TEXT NOT NULL,
	last_updated_at      TEXT NOT NULL,
	paper_type           TEXT NOT NULL,
	PRIMARY KEY (geo_id, pmid)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_universal_identifier_geo_pmid
	ON universal_identifier(geo_id, pmid);

CREATE TABLE IF NOT EXISTS url_discovery (
	geo_id        TEXT NOT NULL,
	pmid          TEXT NOT NULL,
	source        TEXT NOT NULL,
	url           TEXT NOT NULL,
	url_type      TEXT NOT NULL,
	priority      INTEGER NOT NULL,
	evidence      TEXT,
	discovered_at TEXT NOT NULL,
	UNIQUE (geo_id, pmid, source, url),
	FOREIGN KEY (geo_id, pmid) REFERENCES universal_identifier(geo_id, pmid)
);

CREATE TABLE IF NOT EXISTS pdf_artifact (
	geo_id        TEXT NOT NULL,
	pmid          TEXT NOT NULL,
	pdf_path      TEXT NOT NULL,
	pdf_hash_sha256 TEXT NOT NULL,
	pdf_size_bytes  INTEGER NOT NULL,
	source_used   TEXT NOT NULL,
	downloaded_at TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	PRIMARY KEY (geo_id, pmid),
	FOREIGN KEY (geo_id, pmid) REFERENCES universal_identifier(geo_id, pmid)
);

CREATE TABLE IF NOT EXISTS content_extraction (
	geo_id              TEXT NOT NULL,
	pmid                TEXT NOT NULL,
	full_text           TEXT,
	abstract            TEXT,
	methods             TEXT,
	results             TEXT,
	discussion          TEXT,
	sections_json       TEXT,
	tables_json         TEXT,
	references_json     TEXT,
	word_count          INTEGER NOT NULL,
	extraction_method   TEXT NOT NULL,
	extraction_quality  REAL NOT NULL,
	extraction_grade    TEXT NOT NULL,
	extracted_at        TEXT NOT NULL,
	PRIMARY KEY (geo_id, pmid),
	FOREIGN KEY (geo_id, pmid) REFERENCES universal_identifier(geo_id, pmid)
);

CREATE TABLE IF NOT EXISTS processing_log (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	geo_id    TEXT NOT NULL,
	pmid      TEXT,
	stage     TEXT NOT NULL,
	source    TEXT,
	level     TEXT NOT NULL,
	message   TEXT NOT NULL,
	attempt   INTEGER NOT NULL DEFAULT 0,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relevance_score (
	geo_id               TEXT NOT NULL,
	pmid                 TEXT NOT NULL,
	total                REAL NOT NULL,
	content_sim          REAL NOT NULL,
	keyword_match        REAL NOT NULL,
	recency              REAL NOT NULL,
	citation_component   REAL NOT NULL,
	weights_version      TEXT NOT NULL,
	computed_at          TEXT NOT NULL,
	PRIMARY KEY (geo_id, pmid),
	FOREIGN KEY (geo_id, pmid) REFERENCES universal_identifier(geo_id, pmid)
);
`
