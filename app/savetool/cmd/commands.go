package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/xdooria-persist/pkg/catalog"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
	"github.com/lk2023060901/xdooria-persist/pkg/persist"
	"github.com/lk2023060901/xdooria-persist/pkg/savestore"
	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

var errUsage = errors.New("invalid arguments")

// errProblems validate 发现问题时返回
var errProblems = errors.New("document has problems")

type tool struct {
	cfg    *Config
	logger logger.Logger
	out    io.Writer

	table   *catalog.Table
	watcher *catalog.Watcher
	env     *persist.Env
	codec   *persist.Codec
	store   *savestore.Store
}

func newTool(cfg *Config, l logger.Logger, out io.Writer) (*tool, error) {
	table, err := catalog.Load(&cfg.Catalog, l)
	if err != nil {
		return nil, err
	}

	metrics, err := persist.NewMetrics(prometheus.NewRegistry(), cfg.Metrics.Namespace)
	if err != nil {
		return nil, err
	}
	packages := persist.NewPackageResolver(
		packageDir(filepath.Join(cfg.Catalog.DataDir, "packages")),
		cfg.PackageCache, l, metrics,
	)

	env := persist.NewEnv(
		persist.WithLogger(l),
		persist.WithCatalog(table),
		persist.WithMetrics(metrics),
		persist.WithPackages(packages),
		persist.WithMergeRule(catalog.KindTool, persist.DurabilityRule{}),
		persist.WithMergeRule(catalog.KindItem, persist.StackRule{}),
		persist.WithMergeRule(catalog.KindFish, persist.StackRule{}),
	)

	t := &tool{
		cfg:    cfg,
		logger: l,
		out:    out,
		table:  table,
		env:    env,
		codec:  persist.NewCodec(env),
	}
	if cfg.Catalog.HotReload {
		if t.watcher, err = catalog.NewWatcher(table, cfg.Catalog.DataDir, l); err != nil {
			return nil, err
		}
		t.watcher.OnReload(func(*catalog.Table) {
			packages.Purge()
		})
		t.watcher.Start()
	}
	return t, nil
}

// packageDir 从目录读取 <ident>.json 形式的内容包描述
func packageDir(dir string) persist.PackageFetcher {
	return persist.PackageFetcherFunc(func(ctx context.Context, ident string) (*persist.Package, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ident == "" || strings.ContainsAny(ident, `/\`) {
			return nil, errors.Wrapf(persist.ErrInvalidArgument, "package ident %q", ident)
		}
		data, err := os.ReadFile(filepath.Join(dir, ident+".json"))
		if err != nil {
			return nil, err
		}
		pkg := &persist.Package{}
		if err := json.Unmarshal(data, pkg); err != nil {
			return nil, errors.Wrapf(err, "decode package %q", ident)
		}
		if pkg.Ident == "" {
			pkg.Ident = ident
		}
		return pkg, nil
	})
}

func (t *tool) Close() {
	if t.watcher != nil {
		t.watcher.Stop()
	}
	if t.store != nil {
		if err := t.store.Close(); err != nil {
			t.logger.Warn("failed to close store", "error", err)
		}
	}
}

func (t *tool) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "inspect":
		if len(args) != 1 {
			return errUsage
		}
		return t.inspect(ctx, args[0])
	case "validate":
		if len(args) != 1 {
			return errUsage
		}
		return t.validate(args[0])
	case "repack":
		if len(args) != 2 {
			return errUsage
		}
		return t.repack(args[0], args[1])
	case "export":
		if len(args) != 3 {
			return errUsage
		}
		return t.export(ctx, savestore.Kind(args[0]), args[1], args[2])
	case "import":
		if len(args) != 1 {
			return errUsage
		}
		return t.importFile(ctx, args[0])
	default:
		return errors.Wrapf(errUsage, "unknown command %q", command)
	}
}

// saveFile 存档文件，可能是信封也可能是裸文档
type saveFile struct {
	kind        savestore.Kind
	contentType string
	doc         []byte
	envelope    *savestore.Envelope
}

func (t *tool) readSave(path string) (*saveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	env, doc, err := savestore.Unpack(data)
	if err == nil {
		return &saveFile{kind: env.Kind, contentType: env.ContentType, doc: doc, envelope: env}, nil
	}
	if !errors.Is(err, savestore.ErrBadMagic) {
		return nil, err
	}

	kind, err := sniffKind(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s is neither a save envelope nor a json document", path)
	}
	return &saveFile{kind: kind, contentType: t.codec.ContentType(), doc: data}, nil
}

func sniffKind(data []byte) (savestore.Kind, error) {
	var probe struct {
		PlayerID  *string `json:"player_id"`
		WorldName *string `json:"world_name"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	switch {
	case probe.PlayerID != nil:
		return savestore.KindPlayer, nil
	case probe.WorldName != nil:
		return savestore.KindWorld, nil
	default:
		return "", errors.New("no player_id or world_name field")
	}
}

func (t *tool) codecFor(contentType string) (*persist.Codec, error) {
	return t.codec.ForContentType(contentType)
}

func (t *tool) inspect(ctx context.Context, path string) error {
	f, err := t.readSave(path)
	if err != nil {
		return err
	}
	codec, err := t.codecFor(f.contentType)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if f.envelope != nil {
		fmt.Fprintf(w, "envelope\tv%d %s/%s, %d -> %d bytes\n",
			f.envelope.Version, f.envelope.Compression, f.envelope.Checksum, f.envelope.RawSize, len(f.envelope.Payload))
	}

	switch f.kind {
	case savestore.KindPlayer:
		doc, err := codec.DecodePlayer(f.doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "player\t%s %q\n", doc.PlayerID, doc.DisplayName)
		fmt.Fprintf(w, "saved\t%s (v%d)\n", doc.LastSaved.Format("2006-01-02 15:04:05"), doc.Version)
		fmt.Fprintf(w, "clovers\t%d\n", doc.Clovers)
		occupied := doc.OccupiedSlots()
		fmt.Fprintf(w, "inventory\t%d/%d\n", len(occupied), len(doc.Inventory))
		for _, slot := range occupied {
			fmt.Fprintf(w, "  [%d]\t%s\n", slot.Index, t.describe(ctx, slot.Item))
		}
		for _, slot := range doc.EquippedSlots() {
			fmt.Fprintf(w, "  %s\t%s\n", slot, t.describe(ctx, doc.Equipped(slot)))
		}
	case savestore.KindWorld:
		doc, err := codec.DecodeWorld(f.doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "world\t%q\n", doc.WorldName)
		fmt.Fprintf(w, "saved\t%s (v%d)\n", doc.LastSaved.Format("2006-01-02 15:04:05"), doc.Version)
		fmt.Fprintf(w, "placements\t%d\n", len(doc.Placements))
		for i := range doc.Placements {
			p := &doc.Placements[i]
			fmt.Fprintf(w, "  %s\t%s %s\n", p.Key(), t.describe(ctx, placementItem(p.ItemID, p.Item)), p.Rotation)
		}
		fmt.Fprintf(w, "objects\t%d\n", len(doc.Objects))
		for i := range doc.Objects {
			o := &doc.Objects[i]
			fmt.Fprintf(w, "  (%.1f,%.1f,%.1f)\t%s\n", o.Position.X, o.Position.Y, o.Position.Z, t.describe(ctx, placementItem(o.ItemID, o.Item)))
		}
		for _, room := range slices.Sorted(maps.Keys(doc.Wallpapers)) {
			fmt.Fprintf(w, "  wallpaper %s\t%s\n", room, t.describe(ctx, persist.NewItem(doc.Wallpapers[room])))
		}
		for _, room := range slices.Sorted(maps.Keys(doc.Floors)) {
			fmt.Fprintf(w, "  floor %s\t%s\n", room, t.describe(ctx, persist.NewItem(doc.Floors[room])))
		}
	}
	return nil
}

func placementItem(itemID string, item *persist.PersistentItem) *persist.PersistentItem {
	if item != nil {
		return item
	}
	return persist.NewItem(itemID)
}

func (t *tool) describe(ctx context.Context, item *persist.PersistentItem) string {
	var b strings.Builder
	b.WriteString(item.ItemID)
	if name := item.Name(t.env); name != "" {
		fmt.Fprintf(&b, " %q", name)
	} else {
		b.WriteString(" (unknown)")
	}
	if n := persist.Count(item); n > 1 {
		fmt.Fprintf(&b, " x%d", n)
	}
	if keys := item.Ext().Keys(); len(keys) > 0 {
		fmt.Fprintf(&b, " ext[%s]", strings.Join(keys, ","))
	}
	if item.IsPackage() {
		pkg, err := item.GetPackage(ctx, t.env)
		if err != nil {
			t.logger.Warn("package lookup failed", "item_id", item.ItemID, "package", *item.PackageIdent, "error", err)
			fmt.Fprintf(&b, " package %s", *item.PackageIdent)
		} else {
			fmt.Fprintf(&b, " package %s %q", pkg.Ident, pkg.Title)
		}
	}
	return b.String()
}

func (t *tool) validate(path string) error {
	f, err := t.readSave(path)
	if err != nil {
		return err
	}
	codec, err := t.codecFor(f.contentType)
	if err != nil {
		return err
	}
	ser, err := serializer.ByContentType(codec.ContentType())
	if err != nil {
		return err
	}

	var (
		problems []string
		ids      []string
	)
	switch f.kind {
	case savestore.KindPlayer:
		doc := &persist.PlayerSaveDocument{}
		if err := ser.Deserialize(f.doc, doc); err != nil {
			return errors.Mark(err, persist.ErrInvalidDocument)
		}
		for _, item := range doc.Items() {
			ids = append(ids, item.ItemID)
		}
		if _, err := codec.DecodePlayer(f.doc); err != nil {
			problems = append(problems, err.Error())
		}
	case savestore.KindWorld:
		doc := &persist.WorldSaveDocument{}
		if err := ser.Deserialize(f.doc, doc); err != nil {
			return errors.Mark(err, persist.ErrInvalidDocument)
		}
		for i := range doc.Placements {
			ids = append(ids, placementItem(doc.Placements[i].ItemID, doc.Placements[i].Item).ItemID)
		}
		for i := range doc.Objects {
			ids = append(ids, placementItem(doc.Objects[i].ItemID, doc.Objects[i].Item).ItemID)
		}
		for _, c := range doc.Conflicts() {
			problems = append(problems, fmt.Sprintf("placement conflict at %s: entries %v", c.Key, c.Indexes))
		}
		for _, room := range slices.Sorted(maps.Keys(doc.Wallpapers)) {
			if id := doc.Wallpapers[room]; !t.known(id) {
				problems = append(problems, fmt.Sprintf("unknown wallpaper %q in room %s", id, room))
			}
		}
		for _, room := range slices.Sorted(maps.Keys(doc.Floors)) {
			if id := doc.Floors[room]; !t.known(id) {
				problems = append(problems, fmt.Sprintf("unknown floor %q in room %s", id, room))
			}
		}
		if len(problems) == 0 {
			if _, err := codec.DecodeWorld(f.doc); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	for _, id := range ids {
		if !t.known(id) {
			problems = append(problems, fmt.Sprintf("unknown item %q", id))
		}
	}

	if len(problems) == 0 {
		fmt.Fprintf(t.out, "%s: ok (%s, %d items)\n", path, f.kind, len(ids))
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(t.out, "%s: %s\n", path, p)
	}
	return errors.Wrapf(errProblems, "%d problem(s)", len(problems))
}

func (t *tool) known(itemID string) bool {
	_, ok := t.table.Resolve(itemID)
	return ok
}

func (t *tool) repack(in, out string) error {
	f, err := t.readSave(in)
	if err != nil {
		return err
	}
	packer, err := savestore.NewPacker(t.cfg.Store.Compression, t.cfg.Store.Checksum)
	if err != nil {
		return err
	}
	blob, err := packer.Pack(f.kind, f.contentType, f.doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%s -> %s: %s, %d -> %d bytes (%s/%s)\n",
		in, out, f.kind, len(f.doc), len(blob), t.cfg.Store.Compression, t.cfg.Store.Checksum)
	return nil
}

func (t *tool) openStore(ctx context.Context) (*savestore.Store, error) {
	if t.store != nil {
		return t.store, nil
	}
	s, err := savestore.Open(ctx, &t.cfg.Store, t.codec, t.logger)
	if err != nil {
		return nil, err
	}
	t.store = s
	return s, nil
}

func (t *tool) export(ctx context.Context, kind savestore.Kind, id, out string) error {
	if kind != savestore.KindPlayer && kind != savestore.KindWorld {
		return errors.Wrapf(errUsage, "unknown kind %q", kind)
	}
	s, err := t.openStore(ctx)
	if err != nil {
		return err
	}
	blob, err := s.Export(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "exported %s %s to %s (%d bytes)\n", kind, id, out, len(blob))
	return nil
}

func (t *tool) importFile(ctx context.Context, path string) error {
	f, err := t.readSave(path)
	if err != nil {
		return err
	}
	blob := f.doc
	if f.envelope == nil {
		packer, err := savestore.NewPacker(t.cfg.Store.Compression, t.cfg.Store.Checksum)
		if err != nil {
			return err
		}
		if blob, err = packer.Pack(f.kind, f.contentType, f.doc); err != nil {
			return err
		}
	} else if blob, err = os.ReadFile(path); err != nil {
		return err
	}

	s, err := t.openStore(ctx)
	if err != nil {
		return err
	}
	kind, key, err := s.Import(ctx, blob)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "imported %s as %s\n", kind, key)
	return nil
}
