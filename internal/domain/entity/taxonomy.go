package entity

// Taxonomy maps each category to its ordered list of subcategories.
// Classification output is validated against it: an unknown category rejects
// the whole result, an unknown subcategory is blanked while the category is
// kept.
type Taxonomy map[string][]string

// DefaultTaxonomy returns the classification taxonomy used by the pipeline.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"Политика": {"Внутренняя политика", "Международные отношения", "Выборы",
			"Партии и движения", "Государственное управление", "Коррупционные скандалы"},
		"Экономика": {"Макроэкономика", "Финансы и банки", "Фондовый рынок",
			"Налоги и законодательство", "Бизнес и корпорации", "Криптовалюты и блокчейн"},
		"Технологии": {"IT и софтвер", "Гаджеты и устройства", "Искусственный интеллект",
			"Кибербезопасность", "Космические технологии", "Стартапы и инновации"},
		"Общество": {"Социальные проблемы", "Образование", "Здравоохранение",
			"Демография", "Религия", "Благотворительность"},
		"Культура и искусство": {"Кино и сериалы", "Музыка", "Литература",
			"Театр и танцы", "Архитектура", "Мода и дизайн"},
		"Спорт": {"Футбол", "Хоккей", "Баскетбол", "Олимпийские игры",
			"Экстремальные виды спорта", "Электронный спорт (киберспорт)"},
		"Наука": {"Медицина и биотехнологии", "Физика и астрономия", "Химия и материалы",
			"Экология и климат", "Археология", "Генетика"},
		"Право и криминал": {"Уголовные дела", "Суды и законодательство", "Права человека",
			"Терроризм", "Киберпреступность"},
		"Экология и устойчивое развитие": {"Загрязнение окружающей среды", "Возобновляемая энергетика",
			"Защита животных", "Изменение климата", "Переработка отходов"},
		"Авто и транспорт": {"Автопром", "Электромобили", "ДТП и безопасность",
			"Общественный транспорт", "Автогонки"},
		"Недвижимость": {"Рынок жилья", "Ипотека", "Коммерческая недвижимость",
			"Строительство", "Дизайн интерьеров"},
		"Туризм и путешествия": {"Авиаперевозки", "Гостиничный бизнес", "Культурный туризм",
			"Экотуризм", "Виза и миграция"},
		"Сельское хозяйство": {"Агротехнологии", "Экспорт/импорт продуктов",
			"Животноводство", "Продовольственная безопасность"},
		"Энергетика": {"Нефть и газ", "Атомная энергетика", "Энергоэффективность",
			"Энергетические кризисы"},
		"Киберпространство": {"Социальные сети", "Виртуальная реальность (VR/AR)",
			"NFT и метавселенные", "Цифровая идентичность"},
		"Здоровый образ жизни": {"Диеты и питание", "Фитнес", "Ментальное здоровье",
			"Альтернативная медицина"},
		"Региональные новости": {"Местное самоуправление", "Городские проекты",
			"Культура регионов", "Гиперлокальные события"},
		"Международные конфликты": {"Войны и санкции", "Дипломатические кризисы",
			"Гуманитарные катастрофы", "Миротворческие миссии"},
		"Образование и карьера": {"Онлайн-образование", "Трудоустройство",
			"Профессии будущего", "Языковые курсы"},
		"Развлечения": {"Знаменитости", "Юмор и мемы", "Ивенты и фестивали", "Телешоу"},
		"Крипто и Web3": {"Децентрализованные финансы (DeFi)", "Регулирование крипторынка",
			"Майнинг", "DAO-организации"},
	}
}

// HasCategory reports whether the category exists in the taxonomy.
func (t Taxonomy) HasCategory(category string) bool {
	_, ok := t[category]
	return ok
}

// HasSubcategory reports whether the subcategory belongs to the category.
func (t Taxonomy) HasSubcategory(category, subcategory string) bool {
	for _, s := range t[category] {
		if s == subcategory {
			return true
		}
	}
	return false
}
