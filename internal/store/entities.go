package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/hierarchy"
	"github.com/google/uuid"
)

// SaveScan persists every encountered class and interface in g under a
// fresh scan_id (a github.com/google/uuid value, so two scans of
// overlapping classpaths stay distinguishable in the scanned_roots and
// classes tables). It does not touch scanned_roots itself; callers that
// also want root-level skip-if-unchanged behavior call MarkRootScanned
// per root after SaveScan succeeds.
//
// Only the facts the query engine's three name-keyed queries need are
// persisted: the hierarchy shape (super name, declared interfaces) and
// declared annotation names. Field/method detail and raw signatures are
// not round-tripped through the store: a cache hit means "skip
// re-walking the classpath for queries", not "skip re-running a scan that
// also wants field/method info"; see DESIGN.md.
func (s *Store) SaveScan(g *hierarchy.Graph) (scanID string, err error) {
	scanID = uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin scan save: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// The store caches one materialized scan at a time, not a history of
	// every scan; a fresh SaveScan replaces whatever was there before.
	for _, stmt := range []string{
		`DELETE FROM class_annotations`, `DELETE FROM annotations`,
		`DELETE FROM class_interfaces`, `DELETE FROM interfaces`, `DELETE FROM classes`,
	} {
		if _, err = tx.Exec(stmt); err != nil {
			return "", fmt.Errorf("clear previous scan: %w", err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO scans (scan_id, started_at) VALUES (?, ?)`,
		scanID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	for _, n := range g.EncounteredClasses() {
		fact := n.Fact
		var mods classfile.Modifiers
		var sig string
		if fact != nil {
			mods = fact.Modifiers
			sig = fact.Signature
		}
		if _, err = tx.Exec(`
			INSERT INTO classes (name, kind, super_name, public, final_mod, abstract_mod, synthetic_mod, signature, source_location, scan_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.Name, kindOf(fact), n.SuperName, boolToInt(mods.Public), boolToInt(mods.Final),
			boolToInt(mods.Abstract), boolToInt(mods.Synthetic), sig, n.SourceLocation, scanID,
		); err != nil {
			return "", fmt.Errorf("insert class %s: %w", n.Name, err)
		}

		for _, iface := range n.Interfaces {
			if _, err = tx.Exec(`REPLACE INTO class_interfaces (class_name, interface_name) VALUES (?, ?)`,
				n.Name, iface); err != nil {
				return "", fmt.Errorf("insert class_interfaces %s/%s: %w", n.Name, iface, err)
			}
		}
		for _, ann := range n.Annotations {
			if _, err = tx.Exec(`REPLACE INTO annotations (name) VALUES (?)`, ann); err != nil {
				return "", fmt.Errorf("insert annotation %s: %w", ann, err)
			}
			if _, err = tx.Exec(`REPLACE INTO class_annotations (class_name, annotation_name) VALUES (?, ?)`,
				n.Name, ann); err != nil {
				return "", fmt.Errorf("insert class_annotations %s/%s: %w", n.Name, ann, err)
			}
		}
	}

	for _, n := range g.EncounteredInterfaces() {
		var sig string
		if n.Fact != nil {
			sig = n.Fact.Signature
		}
		if _, err = tx.Exec(`
			INSERT INTO interfaces (name, kind, signature, source_location, scan_id) VALUES (?, ?, ?, ?, ?)`,
			n.Name, kindOf(n.Fact), sig, n.SourceLocation, scanID,
		); err != nil {
			return "", fmt.Errorf("insert interface %s: %w", n.Name, err)
		}
		for _, iface := range n.SuperInterfaces {
			if _, err = tx.Exec(`REPLACE INTO class_interfaces (class_name, interface_name) VALUES (?, ?)`,
				n.Name, iface); err != nil {
				return "", fmt.Errorf("insert superinterface %s/%s: %w", n.Name, iface, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit scan save: %w", err)
	}
	return scanID, nil
}

func kindOf(fact *classfile.ClassFact) string {
	if fact == nil {
		return classfile.KindClass.String()
	}
	return fact.Kind.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// LoadGraph rebuilds a hierarchy.Graph from the most recently saved scan
// by replaying every persisted class/interface as a minimal ClassFact
// through Graph.Ingest, then Finalize. This lets `jscan query` answer
// subclassesOf/classesImplementing/classesWithAnnotation against a cached
// scan without re-walking the classpath, reusing the same closure-
// computation code a live scan uses rather than duplicating it in SQL.
func (s *Store) LoadGraph() (*hierarchy.Graph, error) {
	g := hierarchy.New(diagnostic.NewStream())

	classRows, err := s.db.Query(`SELECT name, kind, super_name, public, final_mod, abstract_mod, synthetic_mod, signature, source_location FROM classes`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer classRows.Close()

	type classRow struct {
		name, kind, super, sig  string
		public, final, abstract bool
		synthetic               bool
		location                int
	}
	var rows []classRow
	for classRows.Next() {
		var r classRow
		var superName sql.NullString
		var sig sql.NullString
		var pub, fin, abs, syn int
		if err := classRows.Scan(&r.name, &r.kind, &superName, &pub, &fin, &abs, &syn, &sig, &r.location); err != nil {
			return nil, fmt.Errorf("scan class row: %w", err)
		}
		r.super = superName.String
		r.sig = sig.String
		r.public, r.final, r.abstract, r.synthetic = pub != 0, fin != 0, abs != 0, syn != 0
		rows = append(rows, r)
	}
	if err := classRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class rows: %w", err)
	}

	for _, r := range rows {
		ifaces, err := s.interfacesOf(r.name)
		if err != nil {
			return nil, err
		}
		anns, err := s.annotationsOf(r.name)
		if err != nil {
			return nil, err
		}
		fact := &classfile.ClassFact{
			Name:           r.name,
			Kind:           kindFromString(r.kind),
			Modifiers:      classfile.Modifiers{Public: r.public, Final: r.final, Abstract: r.abstract, Synthetic: r.synthetic},
			SuperName:      r.super,
			Interfaces:     ifaces,
			Signature:      r.sig,
			SourceLocation: r.location,
		}
		for _, a := range anns {
			fact.Annotations = append(fact.Annotations, classfile.Annotation{TypeName: a})
		}
		if err := g.Ingest(fact); err != nil {
			return nil, fmt.Errorf("ingest cached class %s: %w", r.name, err)
		}
	}

	ifaceRows, err := s.db.Query(`SELECT name, kind, signature, source_location FROM interfaces`)
	if err != nil {
		return nil, fmt.Errorf("query interfaces: %w", err)
	}
	defer ifaceRows.Close()
	for ifaceRows.Next() {
		var name, kind string
		var sig sql.NullString
		var location int
		if err := ifaceRows.Scan(&name, &kind, &sig, &location); err != nil {
			return nil, fmt.Errorf("scan interface row: %w", err)
		}
		supers, err := s.interfacesOf(name)
		if err != nil {
			return nil, err
		}
		fact := &classfile.ClassFact{
			Name:           name,
			Kind:           kindFromString(kind),
			Interfaces:     supers,
			Signature:      sig.String,
			SourceLocation: location,
		}
		if err := g.Ingest(fact); err != nil {
			return nil, fmt.Errorf("ingest cached interface %s: %w", name, err)
		}
	}
	if err := ifaceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interface rows: %w", err)
	}

	if err := g.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize cached graph: %w", err)
	}
	return g, nil
}

func (s *Store) interfacesOf(className string) ([]string, error) {
	rows, err := s.db.Query(`SELECT interface_name FROM class_interfaces WHERE class_name = ?`, className)
	if err != nil {
		return nil, fmt.Errorf("query class_interfaces for %s: %w", className, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan class_interfaces for %s: %w", className, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *Store) annotationsOf(className string) ([]string, error) {
	rows, err := s.db.Query(`SELECT annotation_name FROM class_annotations WHERE class_name = ?`, className)
	if err != nil {
		return nil, fmt.Errorf("query class_annotations for %s: %w", className, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan class_annotations for %s: %w", className, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func kindFromString(s string) classfile.Kind {
	switch s {
	case "interface":
		return classfile.KindInterface
	case "annotation":
		return classfile.KindAnnotation
	case "enum":
		return classfile.KindEnum
	default:
		return classfile.KindClass
	}
}
