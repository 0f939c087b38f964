package cache

import "fmt"

// Key is a cache key. Build keys only with the functions below so that the read path
// that fills an entry and the write path that invalidates it always agree.
type Key string

// Prefix names a family of cached responses.
type Prefix string

const (
	PrefixProductsList  Prefix = "products_list"
	PrefixProductDetail Prefix = "product_detail"
	PrefixOrdersList    Prefix = "orders_list"
	PrefixOrderDetail   Prefix = "order_detail"
)

// Global is the key of an unscoped entry: "{prefix}".
func Global(p Prefix) Key {
	return Key(p)
}

// UserScoped is the key of an entry computed for one user: "{prefix}_user_{userID}".
func UserScoped(p Prefix, userID string) Key {
	return Key(fmt.Sprintf("%s_user_%s", p, userID))
}

// Detail is the key of an entry for one record: "{prefix}_{pk}".
func Detail(p Prefix, pk string) Key {
	return Key(fmt.Sprintf("%s_%s", p, pk))
}

func ProductsList() Key                 { return Global(PrefixProductsList) }
func ProductDetail(productID string) Key { return Detail(PrefixProductDetail, productID) }
func OrdersList(userID string) Key       { return UserScoped(PrefixOrdersList, userID) }
func OrderDetail(orderID string) Key     { return Detail(PrefixOrderDetail, orderID) }

// AllOrders is the key of the unscoped order list served to staff.
func AllOrders() Key { return Global(PrefixOrdersList) }

// ProductKeys returns every key that can hold data of the given products.
func ProductKeys(productIDs ...string) []Key {
	keys := make([]Key, 0, len(productIDs)+1)
	keys = append(keys, ProductsList())
	for _, id := range productIDs {
		keys = append(keys, ProductDetail(id))
	}
	return keys
}

// OrderKeys returns every key that can hold data of the order: its detail entry, the staff
// list and the list of each given user.
func OrderKeys(orderID string, userIDs ...string) []Key {
	keys := []Key{OrderDetail(orderID), AllOrders()}
	for _, uid := range userIDs {
		keys = append(keys, OrdersList(uid))
	}
	return keys
}
