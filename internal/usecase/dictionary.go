package usecase

// translations maps Indonesian and Spanish tokens to English. Values are never
// keys themselves so that Normalize stays idempotent.
var translations = map[string]string{
	// Indonesian: produce
	"wortel": "carrot", "kentang": "potato", "bawang": "onion", "tomat": "tomato",
	"cabai": "chili", "cabe": "chili", "kubis": "cabbage", "kol": "cabbage",
	"bayam": "spinach", "jagung": "corn", "timun": "cucumber", "mentimun": "cucumber",
	"terong": "eggplant", "jamur": "mushroom", "kacang": "bean", "selada": "lettuce",
	"brokoli": "broccoli", "seledri": "celery", "jahe": "ginger", "kunyit": "turmeric",
	"jeruk": "orange", "apel": "apple", "pisang": "banana", "mangga": "mango",
	"nanas": "pineapple", "semangka": "watermelon", "anggur": "grape",
	"alpukat": "avocado", "pepaya": "papaya", "stroberi": "strawberry",
	// Indonesian: protein, dairy, staples
	"ayam": "chicken", "sapi": "beef", "babi": "pork", "ikan": "fish",
	"udang": "shrimp", "cumi": "squid", "kepiting": "crab", "telur": "egg",
	"susu": "milk", "keju": "cheese", "mentega": "butter", "beras": "rice",
	"nasi": "rice", "gula": "sugar", "garam": "salt", "minyak": "oil",
	"tepung": "flour", "tahu": "tofu", "roti": "bread", "madu": "honey",
	// Indonesian: modifiers
	"merah": "red", "putih": "white", "hijau": "green", "kuning": "yellow",
	"hitam": "black", "coklat": "brown", "ungu": "purple", "manis": "sweet",
	"segar": "fresh", "beku": "frozen", "kering": "dried", "asap": "smoked",
	"besar": "large", "kecil": "small", "sedang": "medium", "iris": "sliced",
	"potong": "cut", "bubuk": "powder", "daun": "leaf", "dada": "breast",
	"paha": "thigh", "sayap": "wing", "giling": "ground", "impor": "imported",
	"lokal": "local", "organik": "organic", "utuh": "whole",

	// Spanish: produce
	"zanahoria": "carrot", "zanahorias": "carrot", "papa": "potato", "papas": "potato",
	"patata": "potato", "patatas": "potato", "cebolla": "onion", "cebollas": "onion",
	"tomate": "tomato", "tomates": "tomato", "lechuga": "lettuce", "espinaca": "spinach",
	"maíz": "corn", "maiz": "corn", "pepino": "cucumber", "berenjena": "eggplant",
	"champiñón": "mushroom", "champiñones": "mushroom", "frijol": "bean",
	"frijoles": "bean", "repollo": "cabbage", "ajo": "garlic", "jengibre": "ginger",
	"naranja": "orange", "manzana": "apple", "plátano": "banana", "platano": "banana",
	"limón": "lemon", "limon": "lemon", "uva": "grape", "uvas": "grape",
	"piña": "pineapple", "sandía": "watermelon", "aguacate": "avocado", "fresa": "strawberry",
	// Spanish: protein, dairy, staples
	"pollo": "chicken", "res": "beef", "cerdo": "pork", "pescado": "fish",
	"camarón": "shrimp", "camarones": "shrimp", "huevo": "egg", "huevos": "egg",
	"leche": "milk", "queso": "cheese", "mantequilla": "butter", "arroz": "rice",
	"azúcar": "sugar", "azucar": "sugar", "sal": "salt", "aceite": "oil",
	"harina": "flour", "pan": "bread", "miel": "honey",
	// Spanish: modifiers
	"rojo": "red", "roja": "red", "blanco": "white", "blanca": "white",
	"verde": "green", "amarillo": "yellow", "amarilla": "yellow", "negro": "black",
	"negra": "black", "morado": "purple", "dulce": "sweet", "fresco": "fresh",
	"fresca": "fresh", "congelado": "frozen", "congelada": "frozen", "seco": "dried",
	"seca": "dried", "ahumado": "smoked", "grande": "large", "pequeño": "small",
	"mediano": "medium", "rebanado": "sliced", "molido": "ground", "pechuga": "breast",
	"muslo": "thigh", "ala": "wing", "importado": "imported", "orgánico": "organic",
	"entero": "whole",
}
