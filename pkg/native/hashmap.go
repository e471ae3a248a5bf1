package native

// HashKeyer is implemented by values whose map identity is their content,
// such as strings and boxed integers.
type HashKeyer interface {
	HashKey() interface{}
}

// NativeHashMap represents a java.util.HashMap.
type NativeHashMap struct {
	Data map[interface{}]interface{}
}

// NewNativeHashMap creates a new NativeHashMap.
func NewNativeHashMap() *NativeHashMap {
	return &NativeHashMap{Data: make(map[interface{}]interface{})}
}

// NewHashMap is an alias for NewNativeHashMap.
func NewHashMap() *NativeHashMap {
	return NewNativeHashMap()
}

func mapKey(key interface{}) interface{} {
	if k, ok := key.(HashKeyer); ok {
		return k.HashKey()
	}
	return key
}

// Get returns the value for the given key.
func (m *NativeHashMap) Get(key interface{}) interface{} {
	return m.Data[mapKey(key)]
}

// Put stores a key-value pair and returns the previous value.
func (m *NativeHashMap) Put(key, value interface{}) interface{} {
	k := mapKey(key)
	old := m.Data[k]
	m.Data[k] = value
	return old
}

// ContainsKey reports whether key is present.
func (m *NativeHashMap) ContainsKey(key interface{}) bool {
	_, ok := m.Data[mapKey(key)]
	return ok
}

// Remove deletes key and returns its previous value.
func (m *NativeHashMap) Remove(key interface{}) interface{} {
	k := mapKey(key)
	old := m.Data[k]
	delete(m.Data, k)
	return old
}

// Size returns the number of entries.
func (m *NativeHashMap) Size() int {
	return len(m.Data)
}
