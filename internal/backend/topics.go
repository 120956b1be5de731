package backend

// builtinTopics 内置主题知识库
// 本地模型尚未训练出索引时的最小可用知识，按问题中出现的主题词匹配
var builtinTopics = map[string]string{
	"variables": "In Python, variables are created by assigning a value to a name. For example: `name = 'John'` creates a string variable, and `age = 25` creates an integer variable. Python is dynamically typed, so you don't need to declare the variable type explicitly.",

	"lists": "Python lists are ordered collections that can hold different data types. Create a list with square brackets: `my_list = [1, 2, 3, 'hello']`. You can access elements by index: `my_list[0]` returns the first element. Lists are mutable, meaning you can modify them after creation.",

	"functions": "Functions in Python are defined using the `def` keyword. Here's the basic syntax:\n\n```python\ndef function_name(parameters):\n    # function body\n    return result\n```\n\nExample:\n```python\ndef greet(name):\n    return f'Hello, {name}!'\n```",

	"loops": "Python has two main types of loops:\n\n1. **For loops** - iterate over sequences:\n```python\nfor item in [1, 2, 3]:\n    print(item)\n```\n\n2. **While loops** - repeat while condition is true:\n```python\nwhile x < 10:\n    x += 1\n```",

	"dictionaries": "Dictionaries store key-value pairs. Create them with curly braces:\n\n```python\nmy_dict = {'name': 'John', 'age': 30}\nprint(my_dict['name'])  # Access by key\nmy_dict['city'] = 'New York'  # Add new key-value pair\n```",

	"classes": "Classes define objects in Python:\n\n```python\nclass Person:\n    def __init__(self, name, age):\n        self.name = name\n        self.age = age\n\n    def introduce(self):\n        return f'Hi, I am {self.name}'\n\nperson = Person('Alice', 25)\nprint(person.introduce())\n```",

	"error handling": "Use try-except blocks to handle errors gracefully:\n\n```python\ntry:\n    result = 10 / 0\nexcept ZeroDivisionError:\n    print('Cannot divide by zero!')\nexcept Exception as e:\n    print(f'An error occurred: {e}')\nfinally:\n    print('This always executes')\n```",

	"html": "HTML (HyperText Markup Language) structures web content:\n\n```html\n<!DOCTYPE html>\n<html>\n<head>\n    <title>My Page</title>\n</head>\n<body>\n    <h1>Welcome</h1>\n    <p>This is a paragraph.</p>\n</body>\n</html>\n```",

	"css": "CSS (Cascading Style Sheets) styles HTML elements:\n\n```css\nbody {\n    font-family: Arial, sans-serif;\n    margin: 0;\n    padding: 20px;\n}\n\n.button {\n    background-color: #007bff;\n    color: white;\n    padding: 10px 20px;\n    border-radius: 4px;\n}\n```",

	"flexbox": "Flexbox creates flexible layouts:\n\n```css\n.flex-container {\n    display: flex;\n    justify-content: space-between;\n    align-items: center;\n}\n\n.flex-item {\n    flex: 1;\n    margin: 10px;\n}\n```",

	"javascript": "JavaScript adds interactivity to web pages:\n\n```javascript\nconst message = 'Hello, World!';\nfunction greet(name) {\n    return `Hello, ${name}!`;\n}\n\ndocument.getElementById('myButton').addEventListener('click', function() {\n    alert('Button clicked!');\n});\n```",

	"goroutine": "Goroutines are lightweight threads managed by the Go runtime. Start one with the `go` keyword:\n\n```go\ngo func() {\n    fmt.Println(\"running concurrently\")\n}()\n```\n\nUse channels or sync.WaitGroup to coordinate goroutines and avoid leaking them.",

	"react": "React builds user interfaces with components:\n\n```jsx\nimport React, { useState } from 'react';\n\nfunction App() {\n    const [count, setCount] = useState(0);\n\n    return (\n        <div>\n            <h1>Count: {count}</h1>\n            <button onClick={() => setCount(count + 1)}>Increment</button>\n        </div>\n    );\n}\n\nexport default App;\n```",

	"fetch api": "Fetch API makes HTTP requests:\n\n```javascript\nfetch('/api/data')\n    .then(response => response.json())\n    .then(data => {\n        console.log('Success:', data);\n    })\n    .catch(error => {\n        console.error('Error:', error);\n    });\n```",
}

// generalHelpResponse 学习类问题的兜底回答
const generalHelpResponse = `Welcome to programming! Here are some fundamental concepts to get you started:

**Variables**: Store data with names like ` + "`name = 'Alice'`" + `
**Data Types**: strings, integers, floats, booleans, lists, dictionaries
**Control Flow**: if/else statements, for/while loops
**Functions**: Reusable code blocks
**Classes**: Blueprints for creating objects

Would you like me to explain any of these topics in more detail?`

// debuggingHelpResponse 调试类问题的兜底回答
const debuggingHelpResponse = `Here is a systematic approach to debugging:

1. **Read the error message carefully** - it usually points to the exact line and cause
2. **Reproduce the problem** with the smallest possible input
3. **Check recent changes** - what worked before the bug appeared?
4. **Add logging or print statements** around the failing code
5. **Isolate the failure** by testing components separately

If you share the exact error message and the relevant code, I can give more specific guidance.`

// defaultResponse 无匹配时的兜底回答
const defaultResponse = `I can help with programming questions across Python, JavaScript, HTML/CSS, React, and Go. For the best answer, include:

- The programming language you are using
- What you are trying to achieve
- Any error messages you are seeing
- A minimal code sample if relevant

Could you provide more details about your question?`
