package runtime

// EmptyValue is the parameter and return type of methods that take or produce nothing.
type EmptyValue struct{}

// Empty is a convenience value for methods that take no parameters.
var Empty = &EmptyValue{}
