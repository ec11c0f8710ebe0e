// Package testing provides a conformance suite for implementations of the
// mapper.IMapper contract.
//
// The suite checks the behaviour every mapper must share: an empty list is not
// an error, created entities read back equal, absent keys yield NotFound (never
// BackendError) on read, update and delete, a duplicate create yields Conflict,
// and a failed update leaves all other entities untouched.
//
// Example usage:
//
//	func Test(t *testing.T) {
//		mappertesting.RunMapperTests(t, "MyMapper", func(t *testing.T) mappertesting.Fixture[*Conn, string, Entity] {
//			conn := newConn(t)
//			return mappertesting.Fixture[*Conn, string, Entity]{
//				Mapper:    NewMyMapper(),
//				Conn:      conn,
//				NewEntity: func(n int) Entity { return Entity{ID: fmt.Sprint(n)} },
//				Modify:    func(e Entity) Entity { e.Name += "!"; return e },
//				KeyOf:     func(e Entity) string { return e.ID },
//				Missing:   "missing",
//			}
//		})
//	}
package testing
