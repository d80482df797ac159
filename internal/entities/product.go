package entities

// Product принадлежит каталогу, сервис заказов его не изменяет напрямую.
type Product struct {
	ID    int64
	Title string
	Price int64
	Stock int
}
