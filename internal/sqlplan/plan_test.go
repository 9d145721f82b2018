package sqlplan

import "testing"

func TestToStringBasicSelect(t *testing.T) {
	q := Select([]Selector{{Value: "baseform"}, {Value: "pos"}}).FromTable("saldo").Where("`pos` = 'nn'")
	data, count := q.ToString(false, true)

	wantData := "SELECT `baseform`, `pos` FROM `saldo` WHERE `pos` = 'nn'"
	if data != wantData {
		t.Errorf("data sql = %q, want %q", data, wantData)
	}
	if count != "" {
		t.Errorf("count sql = %q, want empty (not a paged topLevel rendering)", count)
	}
}

func TestToStringPagedCount(t *testing.T) {
	size := 10
	q := Select([]Selector{{Value: "baseform"}}).FromTable("saldo")
	q.size = &size
	q.from = 20

	data, count := q.ToString(true, true)
	if want := "SELECT `baseform` FROM `saldo` LIMIT 10 OFFSET 20"; data != want {
		t.Errorf("data sql = %q, want %q", data, want)
	}
	if want := "SELECT COUNT(*) FROM `saldo`"; count != want {
		t.Errorf("count sql = %q, want %q", count, want)
	}
}

func TestToStringCollectionJoin(t *testing.T) {
	q := Select([]Selector{{Value: "baseform"}}).FromTable("saldo")
	q.Join("pos", "", "`value` = 'nn'")

	data, _ := q.ToString(false, true)
	want := "WITH pos__where AS (SELECT `__parent_id` FROM `saldo__pos` WHERE `value` = 'nn' GROUP BY `__parent_id`), " +
		"pos__data AS (SELECT `__parent_id`, GROUP_CONCAT(value SEPARATOR '" + CollectionSeparator + "') AS pos FROM `saldo__pos` GROUP BY `__parent_id`) " +
		"SELECT `baseform` FROM `saldo` LEFT JOIN `pos__data` ON `pos__data`.__parent_id = saldo.__id WHERE EXISTS (SELECT 1 FROM `pos__where` WHERE saldo.__id = __parent_id)"
	if data != want {
		t.Errorf("data sql =\n%q\nwant\n%q", data, want)
	}
}

func TestToStringUnionOfInnerQueries(t *testing.T) {
	inner1 := Select([]Selector{{Value: "'saldo'", Alias: "resource_id"}}).FromTable("saldo")
	inner2 := Select([]Selector{{Value: "'swesaurus'", Alias: "resource_id"}}).FromTable("swesaurus")
	q := Select([]Selector{{Value: "COUNT(*)", Alias: "count"}, {Value: "resource_id"}}).
		FromInnerQueries([]InnerQuery{{Query: inner1}, {Query: inner2}}).
		GroupBy([]string{"resource_id"})

	data, _ := q.ToString(false, true)
	want := "SELECT COUNT(*) AS count, `resource_id` FROM (" +
		"SELECT 'saldo' AS resource_id FROM `saldo` UNION ALL SELECT 'swesaurus' AS resource_id FROM `swesaurus`" +
		") as innerq GROUP BY `resource_id`"
	if data != want {
		t.Errorf("data sql =\n%q\nwant\n%q", data, want)
	}
}
