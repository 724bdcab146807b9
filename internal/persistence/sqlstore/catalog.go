package sqlstore

import (
	"context"
	"strings"

	"github.com/example/room-scheduler/internal/persistence"
)

type roomRow struct {
	Name     string `db:"name"`
	Sector   string `db:"sector"`
	Capacity int    `db:"capacity"`
}

type equipmentRow struct {
	Room   string `db:"room"`
	Sector string `db:"sector"`
	Item   string `db:"item"`
}

type sectorRow struct {
	Name        string `db:"name"`
	MemberCount int    `db:"member_count"`
}

const roomColumns = `SELECT r.name, r.sector, r.capacity FROM rooms r`

func (t *txStore) FindRoom(ctx context.Context, name, sector string) (persistence.Room, error) {
	return t.findRoom(ctx, name, sector, "")
}

func (t *txStore) LockRoom(ctx context.Context, name, sector string) (persistence.Room, error) {
	return t.findRoom(ctx, name, sector, t.dialect.lockOf("r"))
}

func (t *txStore) findRoom(ctx context.Context, name, sector, lock string) (persistence.Room, error) {
	var row roomRow
	if err := t.get(ctx, "find room", &row, roomColumns+` WHERE r.name = ? AND r.sector = ?`+lock, name, sector); err != nil {
		return persistence.Room{}, err
	}
	var items []string
	if err := t.selectAll(ctx, "find room equipment", &items,
		`SELECT item FROM room_equipment WHERE room = ? AND sector = ? ORDER BY item`, name, sector); err != nil {
		return persistence.Room{}, err
	}
	return persistence.Room{Name: row.Name, Sector: row.Sector, Capacity: row.Capacity, Equipment: items}, nil
}

func (t *txStore) ListRooms(ctx context.Context, sector string) ([]persistence.Room, error) {
	var (
		rows      []roomRow
		equipment []equipmentRow
		roomWhere string
		itemWhere string
		args      []any
	)
	if sector != "" {
		roomWhere = ` WHERE r.sector = ?`
		itemWhere = ` WHERE sector = ?`
		args = append(args, sector)
	}
	if err := t.selectAll(ctx, "list rooms", &rows, roomColumns+roomWhere+` ORDER BY r.sector, r.name`, args...); err != nil {
		return nil, err
	}
	if err := t.selectAll(ctx, "list room equipment", &equipment,
		`SELECT room, sector, item FROM room_equipment`+itemWhere+` ORDER BY item`, args...); err != nil {
		return nil, err
	}

	type key struct{ room, sector string }
	items := make(map[key][]string)
	for _, e := range equipment {
		k := key{e.Room, e.Sector}
		items[k] = append(items[k], e.Item)
	}

	rooms := make([]persistence.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, persistence.Room{
			Name:      row.Name,
			Sector:    row.Sector,
			Capacity:  row.Capacity,
			Equipment: items[key{row.Name, row.Sector}],
		})
	}
	return rooms, nil
}

func (t *txStore) ListSectors(ctx context.Context) ([]persistence.Sector, error) {
	var rows []sectorRow
	if err := t.selectAll(ctx, "list sectors", &rows, `SELECT name, member_count FROM sectors ORDER BY name`); err != nil {
		return nil, err
	}
	sectors := make([]persistence.Sector, 0, len(rows))
	for _, row := range rows {
		sectors = append(sectors, persistence.Sector{Name: row.Name, MemberCount: row.MemberCount})
	}
	return sectors, nil
}

func (t *txStore) FindSector(ctx context.Context, name string) (persistence.Sector, error) {
	var row sectorRow
	if err := t.get(ctx, "find sector", &row, `SELECT name, member_count FROM sectors WHERE name = ?`, name); err != nil {
		return persistence.Sector{}, err
	}
	return persistence.Sector{Name: row.Name, MemberCount: row.MemberCount}, nil
}

func (t *txStore) UpsertSector(ctx context.Context, name string) error {
	_, err := t.exec(ctx, "upsert sector", `INSERT INTO sectors (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

func (t *txStore) UpsertRoom(ctx context.Context, room persistence.Room) error {
	if _, err := t.exec(ctx, "upsert room",
		`INSERT INTO rooms (name, sector, capacity) VALUES (?, ?, ?)
		 ON CONFLICT (name, sector) DO UPDATE SET capacity = excluded.capacity`,
		room.Name, room.Sector, room.Capacity); err != nil {
		return err
	}
	if _, err := t.exec(ctx, "clear room equipment", `DELETE FROM room_equipment WHERE room = ? AND sector = ?`, room.Name, room.Sector); err != nil {
		return err
	}
	seen := make(map[string]bool, len(room.Equipment))
	for _, item := range room.Equipment {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		if _, err := t.exec(ctx, "insert room equipment",
			`INSERT INTO room_equipment (room, sector, item) VALUES (?, ?, ?)`, room.Name, room.Sector, item); err != nil {
			return err
		}
	}
	return nil
}

func (t *txStore) DecrementSectorMembers(ctx context.Context, sector string) error {
	n, err := t.exec(ctx, "decrement sector members",
		`UPDATE sectors SET member_count = CASE WHEN member_count > 0 THEN member_count - 1 ELSE 0 END WHERE name = ?`, sector)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (t *txStore) IncrementSectorMembers(ctx context.Context, sector string) error {
	n, err := t.exec(ctx, "increment sector members", `UPDATE sectors SET member_count = member_count + 1 WHERE name = ?`, sector)
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
